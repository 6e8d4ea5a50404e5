package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance: one validator.Validate
// per process, custom validators registered once.
var validate = validator.New()

// RegisterValidation exposes the underlying validator's custom-tag
// registration so applications can add SocketAPI-specific tags (e.g.
// "channelname") without reaching into an internal package.
func RegisterValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}

// DecodeLeaf decodes raw JSON into p's declared Go type, applying the
// usual scalar coercions (string<->number where unambiguous), then runs
// validator tag/struct validation.
func DecodeLeaf(p CompiledParam, raw json.RawMessage) (any, error) {
	target := reflect.New(p.Type)

	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		coerced, ok := coerce(raw, p.Type)
		if !ok {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		target = coerced
	}

	value := target.Elem().Interface()

	if p.Type.Kind() == reflect.Struct {
		if err := validate.Struct(value); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		return value, nil
	}

	if p.Tag != "" {
		if err := validate.Var(value, p.Tag); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return value, nil
}

// coerce attempts the narrow set of type coercions a mainstream JSON
// schema validator performs automatically: a JSON string holding a number
// bound to an integer or float field, a JSON string holding a boolean
// bound to a bool field, or a JSON number bound to a string field.
func coerce(raw json.RawMessage, t reflect.Type) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.String:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			v := reflect.New(t)
			v.Elem().SetString(n.String())
			return v, true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				v := reflect.New(t)
				v.Elem().SetInt(i)
				return v, true
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if u, err := strconv.ParseUint(s, 10, 64); err == nil {
				v := reflect.New(t)
				v.Elem().SetUint(u)
				return v, true
			}
		}
	case reflect.Float32, reflect.Float64:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				v := reflect.New(t)
				v.Elem().SetFloat(f)
				return v, true
			}
		}
	case reflect.Bool:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if b, err := strconv.ParseBool(s); err == nil {
				v := reflect.New(t)
				v.Elem().SetBool(b)
				return v, true
			}
		}
	}
	return reflect.Value{}, false
}

// ObjectFields splits a JSON object into its top-level fields, the form
// the resolver walks a Compiled schema against. An empty/absent raw value
// decodes to an empty field set rather than an error.
func ObjectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
