package wire

import (
	"encoding/json"
	"fmt"

	"acctview/pkg/models"

	"github.com/tidwall/gjson"
)

// DecodeVoting turns a batch of raw voting states into delegations.
// Only the delegating variant produces a record; every other variant and
// null leave the slot nil.
func DecodeVoting(raw []json.RawMessage) ([]*models.Delegation, error) {
	out := make([]*models.Delegation, len(raw))
	for i, b := range raw {
		d, err := decodeVoting(gjson.ParseBytes(b))
		if err != nil {
			return nil, fmt.Errorf("voting %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func decodeVoting(r gjson.Result) (*models.Delegation, error) {
	if isNull(r) {
		return nil, nil
	}
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: voting is %s", ErrUnexpectedShape, r.Type)
	}
	d := field(r, "delegating")
	if isNull(d) {
		return nil, nil
	}
	if !d.IsObject() {
		return nil, fmt.Errorf("%w: delegating is %s", ErrUnexpectedShape, d.Type)
	}

	target, err := address(field(d, "target"), "target")
	if err != nil {
		return nil, err
	}
	amt, err := amount(field(d, "balance"))
	if err != nil {
		return nil, err
	}
	conv := models.ConvictionNone
	if c := field(d, "conviction"); !isNull(c) {
		raw := c.Str
		if c.Type == gjson.Number {
			raw = c.Raw
		}
		if conv, err = models.ParseConviction(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
	}
	return &models.Delegation{AccountDelegated: target, Amount: amt, Conviction: conv}, nil
}
