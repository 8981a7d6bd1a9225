// Package wire decodes raw chain query results into the canonical models.
//
// Results arrive as one json.RawMessage per queried address, index-aligned
// with the query. Decoders never reorder or drop elements: a batch either
// decodes completely or fails as a whole.
package wire

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/tidwall/gjson"
)

// ErrUnexpectedShape is returned when an element matches none of the known encodings.
var ErrUnexpectedShape = errors.New("unexpected wire shape")

// field looks a key up ignoring case. Chains disagree on enum and field casing.
func field(obj gjson.Result, name string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if strings.EqualFold(k.String(), name) {
			out = v
			return false
		}
		return true
	})
	return out
}

func isNull(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null
}

// amount parses a balance given as JSON number, decimal string or 0x-hex string.
// A missing value is zero.
func amount(r gjson.Result) (*big.Int, error) {
	switch r.Type {
	case gjson.Null:
		return new(big.Int), nil
	case gjson.Number:
		v, ok := new(big.Int).SetString(r.Raw, 10)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: amount %s", ErrUnexpectedShape, r.Raw)
		}
		return v, nil
	case gjson.String:
		v, ok := math.ParseBig256(r.Str)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: amount %q", ErrUnexpectedShape, r.Str)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: amount is %s", ErrUnexpectedShape, r.Type)
}

func address(r gjson.Result, what string) (string, error) {
	if r.Type != gjson.String || r.Str == "" {
		return "", fmt.Errorf("%w: %s is not an address", ErrUnexpectedShape, what)
	}
	return r.Str, nil
}

// Quantity parses a standalone amount result such as a balance.
func Quantity(raw []byte) (*big.Int, error) {
	r := gjson.ParseBytes(raw)
	if !r.Exists() {
		return nil, fmt.Errorf("%w: empty quantity", ErrUnexpectedShape)
	}
	return amount(r)
}
