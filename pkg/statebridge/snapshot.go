package statebridge

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Snapshot returns a deep copy of v made only of JSON-plain values: nil,
// string, float64, bool, []any and map[string]any.
//
// Structs become maps keyed by their json field names; values implementing
// json.Marshaler or encoding.TextMarshaler are converted through them.
// Functions, channels, complex numbers, unsupported map keys and cyclic
// references become empty objects.
func Snapshot(v any) any {
	s := snapshotter{visiting: make(map[visitKey]bool)}
	return s.value(reflect.ValueOf(v))
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

type snapshotter struct {
	visiting map[visitKey]bool
}

func emptyObject() map[string]any { return map[string]any{} }

func (s *snapshotter) value(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}

	if v.Type().Implements(jsonMarshalerType) && v.CanInterface() {
		return viaJSON(v.Interface().(json.Marshaler))
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() && v.CanInterface() && reflect.PointerTo(v.Type()).Implements(jsonMarshalerType) {
		return viaJSON(v.Addr().Interface().(json.Marshaler))
	}
	if v.Type().Implements(textMarshalerType) && v.CanInterface() {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return emptyObject()
		}
		return string(text)
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()

	case reflect.Interface:
		return s.value(v.Elem())

	case reflect.Pointer:
		key := visitKey{v.Pointer(), v.Type()}
		if s.visiting[key] {
			return emptyObject()
		}
		s.visiting[key] = true
		defer delete(s.visiting, key)
		return s.value(v.Elem())

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes())
		}
		key := visitKey{v.Pointer(), v.Type()}
		if s.visiting[key] {
			return emptyObject()
		}
		s.visiting[key] = true
		defer delete(s.visiting, key)
		return s.list(v)

	case reflect.Array:
		return s.list(v)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		key := visitKey{v.Pointer(), v.Type()}
		if s.visiting[key] {
			return emptyObject()
		}
		s.visiting[key] = true
		defer delete(s.visiting, key)
		return s.mapValue(v)

	case reflect.Struct:
		out := emptyObject()
		s.structFields(v, out)
		return out

	default:
		// Func, Chan, Complex64, Complex128, UnsafePointer
		return emptyObject()
	}
}

func (s *snapshotter) list(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = s.value(v.Index(i))
	}
	return out
}

func (s *snapshotter) mapValue(v reflect.Value) any {
	out := emptyObject()
	iter := v.MapRange()
	for iter.Next() {
		name, ok := mapKey(iter.Key())
		if !ok {
			return emptyObject()
		}
		out[name] = s.value(iter.Value())
	}
	return out
}

func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if k.Type().Implements(textMarshalerType) && k.CanInterface() {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err == nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

// structFields copies exported fields into out, following encoding/json
// naming: the json tag name wins, "-" skips, omitempty drops zero values and
// untagged embedded structs are flattened.
func (s *snapshotter) structFields(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		fv := v.Field(i)
		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if ft.Kind() == reflect.Struct {
				s.structFields(fv, out)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if strings.Contains(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = s.value(fv)
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func viaJSON(m json.Marshaler) any {
	data, err := m.MarshalJSON()
	if err != nil {
		return emptyObject()
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return emptyObject()
	}
	return out
}

// Decode converts JSON-plain state into out, which must be a pointer.
func Decode(state any, out any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
