package prefs

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// Magic prefixes tagging values stored in the host's string slot. Both are
// base64 text ("This is the prefix for a list." and "This is the prefix for
// BigInteger") and must stay byte-compatible with existing stores.
const (
	ListPrefix   = "VGhpcyBpcyB0aGUgcHJlZml4IGZvciBhIGxpc3Qu"
	BigIntPrefix = "VGhpcyBpcyB0aGUgcHJlZml4IGZvciBCaWdJbnRlZ2Vy"
)

const bigIntRadix = 36

// HasReservedPrefix reports whether s would be mistaken for an encoded value.
func HasReservedPrefix(s string) bool {
	return strings.HasPrefix(s, ListPrefix) || strings.HasPrefix(s, BigIntPrefix)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("%w: encoding list: %w", ErrIO, err)
	}
	return ListPrefix + base64.StdEncoding.EncodeToString(data), nil
}

func decodeList(payload string) (StringList, error) {
	// Older writers wrapped base64 output at 76 columns.
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding list: %w", ErrIO, err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: decoding list: %w", ErrIO, err)
	}
	if list == nil {
		list = []string{}
	}
	return StringList(list), nil
}

func encodeBigInt(v *big.Int) string {
	return BigIntPrefix + v.Text(bigIntRadix)
}

func decodeBigInt(digits string) (Value, error) {
	n, ok := new(big.Int).SetString(digits, bigIntRadix)
	if !ok {
		return nil, fmt.Errorf("%w: invalid base-%d integer %q", ErrIO, bigIntRadix, digits)
	}
	if n.IsInt64() {
		return Int(n.Int64()), nil
	}
	return BigInt{n}, nil
}

// decodeString resolves a value held in the host's string slot.
func decodeString(s string) (Value, error) {
	switch {
	case strings.HasPrefix(s, ListPrefix):
		return decodeList(s[len(ListPrefix):])
	case strings.HasPrefix(s, BigIntPrefix):
		return decodeBigInt(s[len(BigIntPrefix):])
	default:
		return String(s), nil
	}
}

// decodeNative maps a host-native value to a Value. Legacy sets are reported
// through migrate=true so the caller can rewrite them.
func decodeNative(native any) (v Value, migrate bool, err error) {
	switch n := native.(type) {
	case bool:
		return Bool(n), false, nil
	case int64:
		return Int(n), false, nil
	case int:
		return Int(n), false, nil
	case int32:
		return Int(n), false, nil
	case float64:
		return Double(n), false, nil
	case float32:
		return Double(n), false, nil
	case string:
		v, err := decodeString(n)
		return v, false, err
	case StringSet:
		return StringList(n.Sorted()), true, nil
	default:
		return nil, false, fmt.Errorf("%w: unsupported native type %T", ErrIO, native)
	}
}

// StringSet is the legacy unordered representation of a list value.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given members.
func NewStringSet(members ...string) StringSet {
	s := make(StringSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
