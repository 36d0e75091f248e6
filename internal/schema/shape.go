package schema

import (
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// RequiredMessage is reported for a member T declares but the body omits.
const RequiredMessage = "Required"

var (
	unmarshalerType     = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// checkShape walks a generically decoded JSON value against t and reports
// every type mismatch and every missing member. A struct member is optional
// when its field is a pointer, an interface, or tagged omitempty; every other
// member must be present. Null is accepted only where t is a pointer or an
// interface.
func checkShape(path string, raw any, t reflect.Type, out *Issues) {
	if customDecoder(t) {
		return
	}

	switch t.Kind() {
	case reflect.Pointer:
		if raw == nil {
			return
		}
		checkShape(path, raw, t.Elem(), out)
		return
	case reflect.Interface:
		return
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := raw.(map[string]any)
		if !ok {
			mismatch(path, t, raw, out)
			return
		}
		checkFields(path, obj, t, out)

	case reflect.Map:
		obj, ok := raw.(map[string]any)
		if !ok {
			mismatch(path, t, raw, out)
			return
		}
		for _, key := range sortedKeys(obj) {
			checkShape(join(path, key), obj[key], t.Elem(), out)
		}

	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			if _, ok := raw.(string); !ok {
				mismatch(path, t, raw, out)
			}
			return
		}
		items, ok := raw.([]any)
		if !ok {
			mismatch(path, t, raw, out)
			return
		}
		for i, item := range items {
			checkShape(join(path, strconv.Itoa(i)), item, t.Elem(), out)
		}

	case reflect.String:
		if _, ok := raw.(string); !ok {
			mismatch(path, t, raw, out)
		}

	case reflect.Bool:
		if _, ok := raw.(bool); !ok {
			mismatch(path, t, raw, out)
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := raw.(float64)
		if !ok {
			mismatch(path, t, raw, out)
			return
		}
		if n != math.Trunc(n) {
			*out = append(*out, Issue{Path: path, Message: "Expected integer, received float"})
		}

	case reflect.Float32, reflect.Float64:
		if _, ok := raw.(float64); !ok {
			mismatch(path, t, raw, out)
		}
	}
}

func checkFields(path string, obj map[string]any, t reflect.Type, out *Issues) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, tagged := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && !tagged {
			continue
		}

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				checkFields(path, obj, ft, out)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		raw, present := lookup(obj, name)
		if !present {
			if !optional(f.Type, opts) {
				*out = append(*out, Issue{Path: join(path, name), Message: RequiredMessage})
			}
			continue
		}
		checkShape(join(path, name), raw, f.Type, out)
	}
}

// lookup matches member names the way encoding/json does: exact first, then
// case-insensitively.
func lookup(obj map[string]any, name string) (any, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func optional(t reflect.Type, opts string) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return true
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			return true
		}
	}
	return false
}

func customDecoder(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(unmarshalerType) || pt.Implements(unmarshalerType) ||
		t.Implements(textUnmarshalerType) || pt.Implements(textUnmarshalerType)
}

func mismatch(path string, t reflect.Type, raw any, out *Issues) {
	*out = append(*out, Issue{Path: path, Message: "Expected " + kindName(t) + ", received " + jsonKind(raw)})
}

func jsonKind(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(raw).String()
	}
}

// covered reports whether path is at or below a path already in issues.
func covered(issues Issues, path string) bool {
	for _, issue := range issues {
		if issue.Path == "" || issue.Path == path || strings.HasPrefix(path, issue.Path+".") {
			return true
		}
	}
	return false
}
