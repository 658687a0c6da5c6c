package storability

import (
	"reflect"
)

// Normalize returns the tree that reading value back from the store yields. Maps with
// numeric keys become lists ordered by key, all other maps become map[string]any and
// pointers are dereferenced. Byte slices and scalars are kept as they are.
//
// value must have passed Check.
func Normalize(value any) any {
	return normalize(reflect.ValueOf(value))
}

func normalize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	case reflect.Slice:
		if v.IsNil() || v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		return normalizeList(v)
	case reflect.Array:
		return normalizeList(v)
	case reflect.Map:
		if v.IsNil() {
			return v.Interface()
		}
		return normalizeMap(v)
	}
	return v.Interface()
}

func normalizeList(v reflect.Value) []any {
	list := make([]any, v.Len())
	for i := range list {
		list[i] = normalize(v.Index(i))
	}
	return list
}

func normalizeMap(v reflect.Value) any {
	keys := v.MapKeys()
	if len(keys) > 0 {
		if first, _ := classifyKey(keys[0]); first.numeric {
			// Check guarantees the keys are exactly 1..n
			list := make([]any, len(keys))
			for _, k := range keys {
				mk, _ := classifyKey(k)
				list[int(mk.number)-1] = normalize(v.MapIndex(k))
			}
			return list
		}
	}

	m := make(map[string]any, len(keys))
	for _, k := range keys {
		mk, _ := classifyKey(k)
		m[mk.label] = normalize(v.MapIndex(k))
	}
	return m
}
