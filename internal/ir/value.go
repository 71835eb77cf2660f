package ir

import (
	"slices"
	"unicode/utf16"
)

// IRValue is the closed set of values that can be hashed or used in a
// trace query: strings, integers, booleans, arrays and objects. Floats and
// null are not representable.
type IRValue interface {
	irValue()
}

// IRString is a string value.
type IRString string

// IRInt is an integer value.
type IRInt int64

// IRBool is a boolean value. Pulse levels are encoded as IRBool (high =
// true) in state fingerprints.
type IRBool bool

// IRArray is an ordered list of values.
type IRArray []IRValue

// IRObject maps keys to values. Iterate with SortedKeys.
type IRObject map[string]IRValue

func (IRString) irValue() {}
func (IRInt) irValue()    {}
func (IRBool) irValue()   {}
func (IRArray) irValue()  {}
func (IRObject) irValue() {}

// StringArray keeps the order of ss.
func StringArray(ss []string) IRArray {
	arr := make(IRArray, 0, len(ss))
	for _, s := range ss {
		arr = append(arr, IRString(s))
	}
	return arr
}

// LevelObject encodes a conjunction's remembered input levels.
func LevelObject(levels map[string]Level) IRObject {
	obj := make(IRObject, len(levels))
	for name, lv := range levels {
		obj[name] = IRBool(lv)
	}
	return obj
}

// DeclarationsValue converts declarations to an IRArray, preserving
// declaration order and output order.
func DeclarationsValue(decls []Declaration) IRArray {
	arr := make(IRArray, 0, len(decls))
	for _, d := range decls {
		arr = append(arr, IRObject{
			"kind":    IRString(d.Kind.String()),
			"name":    IRString(d.Name),
			"outputs": StringArray(d.Outputs),
		})
	}
	return arr
}

// SortedKeys returns the keys ordered by UTF-16 code units, the order
// canonical JSON requires. It differs from byte order for names outside
// the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, keyOrder)
	return keys
}

func keyOrder(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
