package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Conviction is the voting-weight multiplier tied to a lock period.
type Conviction uint8

const (
	ConvictionNone Conviction = iota
	ConvictionLocked1x
	ConvictionLocked2x
	ConvictionLocked3x
	ConvictionLocked4x
	ConvictionLocked5x
	ConvictionLocked6x
)

var convictionNames = [...]string{"None", "Locked1x", "Locked2x", "Locked3x", "Locked4x", "Locked5x", "Locked6x"}

func (c Conviction) String() string {
	if int(c) < len(convictionNames) {
		return convictionNames[c]
	}
	return "Conviction(" + strconv.Itoa(int(c)) + ")"
}

// Multiplier is the vote weight label, "0.1x" for no lock.
func (c Conviction) Multiplier() string {
	if c == ConvictionNone {
		return "0.1x"
	}
	return strconv.Itoa(int(c)) + "x"
}

func (c Conviction) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Conviction) UnmarshalText(b []byte) error {
	v, err := ParseConviction(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseConviction accepts the variant name (any case) or its index.
func ParseConviction(s string) (Conviction, error) {
	s = strings.TrimSpace(s)
	for i, n := range convictionNames {
		if strings.EqualFold(n, s) {
			return Conviction(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(convictionNames) {
		return Conviction(n), nil
	}
	return 0, fmt.Errorf("unknown conviction %q", s)
}

// ProxyType restricts what a proxy may do.
type ProxyType string

const (
	ProxyAny               ProxyType = "Any"
	ProxyNonTransfer       ProxyType = "NonTransfer"
	ProxyGovernance        ProxyType = "Governance"
	ProxyStaking           ProxyType = "Staking"
	ProxyIdentityJudgement ProxyType = "IdentityJudgement"
	ProxyCancelProxy       ProxyType = "CancelProxy"
)

// DefaultProxyType is used when the chain omits the type.
const DefaultProxyType = ProxyAny

var proxyTypes = []ProxyType{ProxyAny, ProxyNonTransfer, ProxyGovernance, ProxyStaking, ProxyIdentityJudgement, ProxyCancelProxy}

// ParseProxyType accepts a known name (any case), an index into the known
// variants, or an unknown name which is kept verbatim. Empty means DefaultProxyType.
func ParseProxyType(s string) ProxyType {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultProxyType
	}
	for _, t := range proxyTypes {
		if strings.EqualFold(string(t), s) {
			return t
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(proxyTypes) {
		return proxyTypes[n]
	}
	return ProxyType(s)
}
