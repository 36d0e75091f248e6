// Package schema decodes response bodies into typed values and reports every
// structural defect as a path-qualified issue.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Issue is a single validation defect at a dotted path (empty for the root).
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + " " + i.Message
}

// Issues is the full defect list of one Parse call.
type Issues []Issue

// Error joins every issue as "<path> <message>" separated by ", ".
func (is Issues) Error() string {
	parts := make([]string, len(is))
	for i, issue := range is {
		parts[i] = issue.String()
	}
	return strings.Join(parts, ", ")
}

// Err returns nil for an empty list so callers can use it as an error.
func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	return is
}

// Schema turns a raw body into a T or a list of issues.
type Schema[T any] interface {
	Parse(data []byte) (T, Issues)
}

// Func adapts a plain function to Schema.
type Func[T any] func(data []byte) (T, Issues)

func (f Func[T]) Parse(data []byte) (T, Issues) {
	return f(data)
}

// JSON returns a schema that decodes data as JSON into T and then runs T's
// ozzo-validation rules, if T (or *T) implements validation.Validatable.
//
// The body is first checked against T's shape: every type mismatch and every
// missing required member is reported at its JSON path (see checkShape). Rule
// violations are reported at the json tag path of the offending field; one on
// a path at or below a shape issue is dropped.
func JSON[T any]() Schema[T] {
	return Func[T](func(data []byte) (T, Issues) {
		var zero T

		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return zero, Issues{{Message: "invalid JSON: " + err.Error()}}
		}

		var issues Issues
		checkShape("", raw, reflect.TypeFor[T](), &issues)

		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return zero, append(issues, Issue{Message: err.Error()})
			}
			// checkShape reports mismatches with full paths; this is the fallback.
			if len(issues) == 0 {
				issues = append(issues, Issue{
					Path:    typeErr.Field,
					Message: fmt.Sprintf("Expected %s, received %s", kindName(typeErr.Type), typeErr.Value),
				})
			}
		}

		for _, issue := range Validate(&v) {
			if !covered(issues, issue.Path) {
				issues = append(issues, issue)
			}
		}

		if len(issues) > 0 {
			return zero, issues
		}
		return v, nil
	})
}

// Validate runs the validation rules of v (value or pointer receiver) and
// flattens the result. Values without rules produce no issues.
func Validate(v any) Issues {
	if val, ok := v.(validation.Validatable); ok {
		if issues := FromError(val.Validate()); len(issues) > 0 {
			return issues
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if val, ok := rv.Elem().Interface().(validation.Validatable); ok {
			return FromError(val.Validate())
		}
	}
	return nil
}

// FromError converts an ozzo-validation error tree into Issues.
func FromError(err error) Issues {
	if err == nil {
		return nil
	}
	var issues Issues
	flatten("", err, &issues)
	return issues
}

func flatten(prefix string, err error, out *Issues) {
	var errs validation.Errors
	if errors.As(err, &errs) {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if errs[k] == nil {
				continue
			}
			flatten(join(prefix, k), errs[k], out)
		}
		return
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		*out = append(*out, Issue{Path: prefix, Message: "internal validation error: " + internal.Error()})
		return
	}

	*out = append(*out, Issue{Path: prefix, Message: err.Error()})
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return t.String()
	}
}
