package wire

import (
	"encoding/json"
	"fmt"

	"acctview/pkg/models"

	"github.com/tidwall/gjson"
)

// ProxyShape is the encoding of proxy definitions used by a chain.
type ProxyShape int

const (
	// ProxyShapeLegacy encodes a definition as a [delegate, proxyType] tuple.
	ProxyShapeLegacy ProxyShape = iota
	// ProxyShapeStructured encodes a definition as {delegate, proxyType, delay}.
	ProxyShapeStructured
)

// StructuredArity is the argument count of the addProxy call on chains that
// return structured definitions.
const StructuredArity = 4

func (s ProxyShape) String() string {
	if s == ProxyShapeStructured {
		return "structured"
	}
	return "legacy"
}

// ShapeForArity picks the proxy encoding from the addProxy argument count.
func ShapeForArity(n int) ProxyShape {
	if n == StructuredArity {
		return ProxyShapeStructured
	}
	return ProxyShapeLegacy
}

type definitionDecoder func(gjson.Result) (models.ProxyDefinition, error)

// DecodeProxies normalizes a batch of raw proxy states. The shape is decided
// by the caller once for the batch; an element encoded differently fails the
// whole batch.
func DecodeProxies(shape ProxyShape, raw []json.RawMessage) ([]*models.ProxyInfo, error) {
	dec := definitionDecoder(legacyDefinition)
	if shape == ProxyShapeStructured {
		dec = structuredDefinition
	}

	out := make([]*models.ProxyInfo, len(raw))
	for i, b := range raw {
		info, err := decodeProxyInfo(gjson.ParseBytes(b), dec)
		if err != nil {
			return nil, fmt.Errorf("proxy %d (%s): %w", i, shape, err)
		}
		out[i] = info
	}
	return out, nil
}

func decodeProxyInfo(r gjson.Result, dec definitionDecoder) (*models.ProxyInfo, error) {
	if isNull(r) {
		return nil, nil
	}
	pair := r.Array()
	if !r.IsArray() || len(pair) != 2 {
		return nil, fmt.Errorf("%w: want [definitions, deposit]", ErrUnexpectedShape)
	}
	if !pair[0].IsArray() {
		return nil, fmt.Errorf("%w: definitions is %s", ErrUnexpectedShape, pair[0].Type)
	}

	deposit, err := amount(pair[1])
	if err != nil {
		return nil, err
	}
	info := &models.ProxyInfo{Definitions: []models.ProxyDefinition{}, Deposit: deposit}
	for _, d := range pair[0].Array() {
		def, err := dec(d)
		if err != nil {
			return nil, err
		}
		info.Definitions = append(info.Definitions, def)
	}
	return info, nil
}

func legacyDefinition(r gjson.Result) (models.ProxyDefinition, error) {
	tuple := r.Array()
	if !r.IsArray() || len(tuple) < 1 || len(tuple) > 2 {
		return models.ProxyDefinition{}, fmt.Errorf("%w: want [delegate, proxyType]", ErrUnexpectedShape)
	}
	delegate, err := address(tuple[0], "delegate")
	if err != nil {
		return models.ProxyDefinition{}, err
	}
	var pt gjson.Result
	if len(tuple) == 2 {
		pt = tuple[1]
	}
	typ, err := proxyType(pt)
	if err != nil {
		return models.ProxyDefinition{}, err
	}
	return models.ProxyDefinition{Delegate: delegate, ProxyType: typ}, nil
}

func structuredDefinition(r gjson.Result) (models.ProxyDefinition, error) {
	if !r.IsObject() {
		return models.ProxyDefinition{}, fmt.Errorf("%w: want {delegate, proxyType}", ErrUnexpectedShape)
	}
	delegate, err := address(field(r, "delegate"), "delegate")
	if err != nil {
		return models.ProxyDefinition{}, err
	}
	typ, err := proxyType(field(r, "proxyType"))
	if err != nil {
		return models.ProxyDefinition{}, err
	}
	def := models.ProxyDefinition{Delegate: delegate, ProxyType: typ}
	if d := field(r, "delay"); d.Type == gjson.Number {
		def.Delay = d.Uint()
	}
	return def, nil
}

func proxyType(r gjson.Result) (models.ProxyType, error) {
	switch {
	case isNull(r):
		return models.DefaultProxyType, nil
	case r.Type == gjson.String:
		return models.ParseProxyType(r.Str), nil
	case r.Type == gjson.Number:
		return models.ParseProxyType(r.Raw), nil
	}
	return "", fmt.Errorf("%w: proxy type is %s", ErrUnexpectedShape, r.Type)
}
