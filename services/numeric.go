package services

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// NormalizeNumeric converts a numeric field supplied as a hex string, a
// decimal string, or a native integer into a canonical non-negative big.Int.
// It is the single source of truth for numeric width and format: the intent
// builder, the codec bridge and the authorization manager all normalize
// through here rather than converting ad hoc at call sites.
func NormalizeNumeric(field string, v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", field)
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("%s is required", field)
		}
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%s must not be negative: %s", field, n)
		}
		return new(big.Int).Set(n), nil
	case int:
		return normalizeInt64(field, int64(n))
	case int64:
		return normalizeInt64(field, n)
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%s has a fractional value: %v", field, n)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s must not be negative: %v", field, n)
		}
		if n > float64(1<<53) {
			return nil, fmt.Errorf("%s exceeds lossless float precision: %v", field, n)
		}
		return big.NewInt(int64(n)), nil
	case string:
		return normalizeString(field, n)
	default:
		return nil, fmt.Errorf("%s has unsupported numeric type %T", field, v)
	}
}

// NormalizeUint64 normalizes like NormalizeNumeric and additionally enforces
// a 64-bit width, for fields the codec encodes as uint64.
func NormalizeUint64(field string, v interface{}) (uint64, error) {
	n, err := NormalizeNumeric(field, v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s exceeds 64-bit width: %s", field, n)
	}
	return n.Uint64(), nil
}

func normalizeInt64(field string, n int64) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%s must not be negative: %d", field, n)
	}
	return big.NewInt(n), nil
}

func normalizeString(field, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%s is required", field)
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
		if digits == "" {
			return nil, fmt.Errorf("%s is not a valid hex quantity: %q", field, s)
		}
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%s cannot be losslessly converted: %q", field, s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative: %q", field, s)
	}
	return n, nil
}
