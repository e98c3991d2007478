package prefs

import (
	"encoding/json"
	"math/big"
	"slices"
)

// Value is a typed preference value. The concrete type is one of Bool, Int,
// BigInt, Double, String or StringList.
type Value interface {
	// Kind reports which variant the value holds.
	Kind() Kind
	isValue()
}

// Kind identifies a Value variant.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindBigInt
	KindDouble
	KindString
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindStringList:
		return "string_list"
	default:
		return "unknown"
	}
}

type (
	Bool       bool
	Int        int64
	Double     float64
	String     string
	StringList []string
)

// BigInt holds an integer outside the int64 range.
type BigInt struct {
	*big.Int
}

func (Bool) Kind() Kind       { return KindBool }
func (Int) Kind() Kind        { return KindInt }
func (BigInt) Kind() Kind     { return KindBigInt }
func (Double) Kind() Kind     { return KindDouble }
func (String) Kind() Kind     { return KindString }
func (StringList) Kind() Kind { return KindStringList }

func (Bool) isValue()       {}
func (Int) isValue()        {}
func (BigInt) isValue()     {}
func (Double) isValue()     {}
func (String) isValue()     {}
func (StringList) isValue() {}

// MarshalJSON keeps an empty list as [] rather than null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Interface returns v as a plain Go value (bool, int64, *big.Int, float64,
// string or []string).
func Interface(v Value) any {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case BigInt:
		return val.Int
	case Double:
		return float64(val)
	case String:
		return string(val)
	case StringList:
		if val == nil {
			return []string{}
		}
		return []string(val)
	default:
		return nil
	}
}

// Equal reports whether two values hold the same variant and content.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Bool, Int, Double, String:
		return a == b
	case BigInt:
		bv, ok := b.(BigInt)
		if !ok || av.Int == nil || bv.Int == nil {
			return ok && av.Int == bv.Int
		}
		return av.Cmp(bv.Int) == 0
	case StringList:
		bv, ok := b.(StringList)
		return ok && slices.Equal(av, bv)
	default:
		return false
	}
}
