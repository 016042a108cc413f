/*
Package schema validates and reshapes loosely typed input (decoded JSON, form
values, test literals) against a declarative list of fields.

A Schema lists the fields an operation accepts. Validate copies each declared
field from the input into a Result, checking its type, running its filter,
renaming it and applying defaults along the way. Undeclared input is dropped.
Every failure is a fail.Invalid error, and validation never does I/O.
*/
package schema

import (
	"encoding/json"
	"fmt"

	"git.flipper.school/flipper/flipper/src/fail"
)

// Data is an untyped input bag.
type Data = map[string]any

type Type int

const (
	Any Type = iota
	String
	Number
	Bool
	Object
	Array
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "any"
	}
}

/*
A Filter transforms a present input value. Returning ok == false drops the
field from the output as if it had never been provided. The field is passed
so filters can read its key and sub-schema.
*/
type Filter func(f *Field, v any) (out any, ok bool, err error)

type Field struct {
	Key    string
	Type   Type
	Filter Filter

	// Output name, if different from Key.
	Rename string

	Required bool

	// Used when the field is absent and HasDefault is set.
	Default    any
	HasDefault bool

	// Sub-schema for Object fields and projection masks.
	Fields Schema
}

func (f *Field) outputName() string {
	if f.Rename != "" {
		return f.Rename
	}
	return f.Key
}

type Schema []Field

// With returns a new schema containing the fields of s followed by more.
func (s Schema) With(more ...Field) Schema {
	res := make(Schema, 0, len(s)+len(more))
	res = append(res, s...)
	return append(res, more...)
}

func Validate(data Data, s Schema) (Result, error) {
	if data == nil || s == nil {
		return nil, fail.Invalidf("Invalid usage. Ensure arguments are objects.")
	}

	out := Result{}
	for i := range s {
		f := &s[i]
		if f.Key == "" || (f.Filter == nil && (f.Type == Any || (f.Type == Object && f.Fields == nil))) {
			return nil, fail.Invalidf("Invalid definition for property: %s.", f.Key)
		}

		v, present := data[f.Key]
		if !present {
			if f.Required {
				return nil, fail.Invalidf("Missing required property: %s.", f.Key)
			}
			if f.HasDefault {
				out[f.outputName()] = f.Default
			}
			continue
		}

		name := f.Key
		if f.Rename != "" {
			if _, taken := out[f.Rename]; taken {
				return nil, fail.Invalidf("Unable to rename property from \"%s\" to \"%s\" because it already exists.", f.Key, f.Rename)
			}
			name = f.Rename
		}

		if !matchesType(f.Type, v) {
			return nil, fail.Invalidf("Received invalid type for property: %s. Expected: %s. Found: %s.", f.Key, f.Type, typeName(v))
		}

		switch {
		case f.Filter != nil:
			res, ok, err := f.Filter(f, v)
			if err != nil {
				return nil, err
			}
			if ok {
				out[name] = res
			}
		case f.Type == Object:
			nested, err := Validate(v.(map[string]any), f.Fields)
			if err != nil {
				return nil, err
			}
			out[name] = nested
		default:
			out[name] = v
		}

		if _, ok := out[name]; !ok && f.Required {
			return nil, fail.Invalidf("Missing required post-filter property: %s.", f.Key)
		}
	}

	return out, nil
}

func matchesType(t Type, v any) bool {
	switch t {
	case Any:
		return true
	case String:
		_, ok := v.(string)
		return ok
	case Number:
		return isNumber(v)
	case Bool:
		_, ok := v.(bool)
		return ok
	case Object:
		_, ok := v.(map[string]any)
		return ok
	case Array:
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any, []string:
		return "array"
	}
	if isNumber(v) {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// Paging declares the offset, limit, sort and projection fields shared by
// every list operation.
func Paging(sortable []string, projectable ...string) Schema {
	return Schema{
		{Key: "offset", Type: Any, Filter: NonNegativeInt, HasDefault: true, Default: 0},
		{Key: "limit", Type: Any, Filter: NonNegativeInt},
		{Key: "sort", Type: Any, Filter: SortOrder(sortable...)},
		{Key: "projection", Type: Object, Filter: ProjectionMask, Fields: Exclude(projectable...)},
	}
}
