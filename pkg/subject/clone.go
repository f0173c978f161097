package subject

import (
	"reflect"

	"mrisubject/pkg/image"
)

// deepCopy returns a copy of v that shares no slices, maps or arrays with it.
// Images and Cloner values are copied with their Clone method. Other pointers,
// channels and funcs are shared.
func deepCopy(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case *image.Image:
		if value == nil {
			return value
		}
		return value.Clone()
	case Cloner:
		return value.Clone()
	}
	return copyValue(reflect.ValueOf(v)).Interface()
}

func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		entries := v.MapRange()
		for entries.Next() {
			out.SetMapIndex(entries.Key(), copyValue(entries.Value()))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(reflect.ValueOf(deepCopy(v.Elem().Interface())))
		return out
	default:
		return v
	}
}
