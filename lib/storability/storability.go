package storability

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RootPath is the path of the root value used by Check
const RootPath = "data"

// Kind classifies why a value is not storable
type Kind int

const (
	KindThread Kind = iota + 1
	KindUserdata
	KindMetatable
	KindMixedTable
	KindNonStringOrNumericKey
	KindInvalidUTF8
	KindNonSequential
	KindCyclic
	KindNaN
	KindFunction
	KindInf
)

func (k Kind) String() string {
	switch k {
	case KindThread:
		return "THREAD_FIELD_NOT_STORABLE"
	case KindUserdata:
		return "USERDATA_FIELD_NOT_STORABLE"
	case KindMetatable:
		return "METATABLE_OR_CLASSES_FIELD_NOT_STORABLE"
	case KindMixedTable:
		return "MIXED_TABLE_FIELD_NOT_STORABLE"
	case KindNonStringOrNumericKey:
		return "NON_STRING_OR_NON_NUMERIC_TABLE_FIELD_NOT_STORABLE"
	case KindInvalidUTF8:
		return "INVALID_UTF8_STRING_FIELD_NOT_STORABLE"
	case KindNonSequential:
		return "NON-SEQUENTIAL_NUMERIC_TABLE_FIELD_NOT_STORABLE"
	case KindCyclic:
		return "CYCLIC_TABLE_FIELD_NOT_STORABLE"
	case KindNaN:
		return "NAN_FIELD_NOT_STORABLE"
	case KindFunction:
		return "FUNCTION_FIELD_NOT_STORABLE"
	case KindInf:
		return "INF_FIELD_NOT_STORABLE"
	default:
		return "UNKNOWN_FIELD_NOT_STORABLE"
	}
}

// Error reports the first unstorable field
type Error struct {
	Kind Kind
	Path string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Kind, e.Path)
}

// Is matches another *Error with the same Kind, so errors.Is(err, &Error{Kind: KindCyclic})
// works regardless of the path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Path == "" || t.Path == e.Path)
}

// Check validates value starting at RootPath. It returns nil if the value is storable.
func Check(value any) *Error {
	return CheckPath(value, RootPath)
}

// CheckPath validates value, reporting violations relative to path.
func CheckPath(value any, path string) *Error {
	w := &walker{onPath: make(map[visitKey]struct{})}
	return w.check(reflect.ValueOf(value), path)
}

// --------------------------------------------------------------------------
// Tree walk
// --------------------------------------------------------------------------

// visitKey identifies a reference node. The type is part of the key so a slice and its
// first element pointer are not confused.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	onPath map[visitKey]struct{} // reference nodes on the current root-to-node path
}

func (w *walker) check(v reflect.Value, path string) *Error {
	if !v.IsValid() {
		return nil // untyped nil
	}

	switch v.Kind() {
	case reflect.Func:
		return &Error{KindFunction, path}
	case reflect.Chan:
		return &Error{KindThread, path}
	case reflect.UnsafePointer, reflect.Uintptr, reflect.Complex64, reflect.Complex128:
		return &Error{KindUserdata, path}
	case reflect.Struct:
		return &Error{KindMetatable, path}
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.check(v.Elem(), path)
	}

	if v.Type().NumMethod() > 0 {
		return &Error{KindMetatable, path}
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		// JSON has no literal for either
		switch f := v.Float(); {
		case math.IsNaN(f):
			return &Error{KindNaN, path}
		case math.IsInf(f, 0):
			return &Error{KindInf, path}
		}
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return &Error{KindInvalidUTF8, path}
		}
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, path, func() *Error { return w.check(v.Elem(), path) })
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return nil
		}
		return w.enter(v, path, func() *Error { return w.checkList(v, path) })
	case reflect.Array:
		return w.checkList(v, path)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, path, func() *Error { return w.checkMap(v, path) })
	}
	return nil
}

// enter marks v as part of the current path while fn runs
func (w *walker) enter(v reflect.Value, path string, fn func() *Error) *Error {
	key := visitKey{ptr: v.Pointer(), typ: v.Type()}
	if _, ok := w.onPath[key]; ok {
		return &Error{KindCyclic, path}
	}
	w.onPath[key] = struct{}{}
	defer delete(w.onPath, key)
	return fn()
}

func (w *walker) checkList(v reflect.Value, path string) *Error {
	for i := 0; i < v.Len(); i++ {
		if err := w.check(v.Index(i), join(path, strconv.Itoa(i))); err != nil {
			return err
		}
	}
	return nil
}

// mapKey is a classified map key
type mapKey struct {
	value   reflect.Value
	label   string
	number  float64
	numeric bool
}

func (w *walker) checkMap(v reflect.Value, path string) *Error {
	keys := make([]mapKey, 0, v.Len())
	strs, nums := 0, 0

	for _, k := range v.MapKeys() {
		mk, ok := classifyKey(k)
		if !ok {
			return &Error{KindNonStringOrNumericKey, path}
		}
		if mk.numeric {
			nums++
		} else {
			strs++
		}
		keys = append(keys, mk)
	}

	if strs > 0 && nums > 0 {
		return &Error{KindMixedTable, path}
	}

	slices.SortFunc(keys, func(a, b mapKey) int {
		if a.numeric {
			switch {
			case a.number < b.number:
				return -1
			case a.number > b.number:
				return 1
			}
			return 0
		}
		return strings.Compare(a.label, b.label)
	})

	// numeric keys behave like a 1-based array and must not have holes
	if nums > 0 {
		for i, k := range keys {
			if k.number != float64(i+1) {
				return &Error{KindNonSequential, path}
			}
		}
	}

	for _, k := range keys {
		if err := w.check(v.MapIndex(k.value), join(path, k.label)); err != nil {
			return err
		}
	}
	return nil
}

func classifyKey(k reflect.Value) (mapKey, bool) {
	orig := k
	for k.Kind() == reflect.Interface {
		if k.IsNil() {
			return mapKey{}, false
		}
		k = k.Elem()
	}

	switch k.Kind() {
	case reflect.String:
		return mapKey{value: orig, label: k.String()}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := k.Int()
		return mapKey{value: orig, label: strconv.FormatInt(n, 10), number: float64(n), numeric: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := k.Uint()
		return mapKey{value: orig, label: strconv.FormatUint(n, 10), number: float64(n), numeric: true}, true
	case reflect.Float32, reflect.Float64:
		f := k.Float()
		return mapKey{value: orig, label: strconv.FormatFloat(f, 'f', -1, 64), number: f, numeric: true}, true
	}
	return mapKey{}, false
}

func join(path, field string) string {
	return path + "." + field
}
