package observer

import (
	"math"
	"reflect"
)

// Kind classifies a value once, when it is handed to Observe.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindObject
	KindArray
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindOpaque:
		return "opaque"
	default:
		return "primitive"
	}
}

// Opaque values are never observed nor traversed, even when they wrap containers.
type Opaque interface {
	OpaqueToObserver()
}

func KindOf(v any) Kind {
	switch c := v.(type) {
	case nil:
		return KindPrimitive
	case Opaque:
		return KindOpaque
	case *Object:
		if c == nil {
			return KindPrimitive
		}
		if c.frozen {
			return KindOpaque
		}
		return KindObject
	case *Array:
		if c == nil {
			return KindPrimitive
		}
		if c.frozen {
			return KindOpaque
		}
		return KindArray
	default:
		return KindPrimitive
	}
}

// sameValue is the write-path identity check. Comparable values use ==,
// reference types compare by pointer and two NaNs are considered equal.
func sameValue(a, b any) bool {
	if isNaN(a) && isNaN(b) {
		return true
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// isNonPrimitive reports values whose contents can change without their
// identity changing. Struct and array values are copies and compare by
// value instead.
func isNonPrimitive(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}
