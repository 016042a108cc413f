package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"github.com/google/uuid"
)

// Identity passes the value through untouched.
func Identity(f *Field, v any) (any, bool, error) {
	return v, true, nil
}

// ToString coerces any non-nil value to its string form.
func ToString(f *Field, v any) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// Trim trims whitespace. A value that trims to nothing counts as absent.
func Trim(f *Field, v any) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, false, fail.Invalidf("Expected a string for property: %s.", f.Key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	return s, true, nil
}

// IDReference turns an external identifier into a uuid.UUID.
func IDReference(f *Field, v any) (any, bool, error) {
	switch id := v.(type) {
	case nil:
		return nil, false, nil
	case uuid.UUID:
		return id, true, nil
	case string:
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, false, nil
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, false, fail.Invalidf("Invalid identifier for property: %s.", f.Key)
		}
		return parsed, true, nil
	case fmt.Stringer:
		return IDReference(f, id.String())
	}
	return nil, false, fail.Invalidf("Invalid identifier for property: %s.", f.Key)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

/*
DateParse accepts a time.Time, a string in RFC 3339 or one of the shorter
layouts above (interpreted as UTC), or a number of milliseconds since the
Unix epoch. Null and the empty string count as absent.
*/
func DateParse(f *Field, v any) (any, bool, error) {
	switch d := v.(type) {
	case nil:
		return nil, false, nil
	case time.Time:
		return d.UTC(), true, nil
	case *time.Time:
		if d == nil {
			return nil, false, nil
		}
		return d.UTC(), true, nil
	case string:
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, false, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC(), true, nil
			}
		}
		if ms, err := strconv.ParseInt(d, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true, nil
		}
	default:
		if ms, ok := toFloat(v); ok && !math.IsNaN(ms) && !math.IsInf(ms, 0) {
			return time.UnixMilli(int64(ms)).UTC(), true, nil
		}
	}
	return nil, false, fail.Invalidf("Invalid date.")
}

var regexMeta = regexp.MustCompile(`[-[\]{}()*+?.,\\^$|#\s]`)

// RegexEscape backslash-escapes regular expression metacharacters and
// whitespace.
func RegexEscape(s string) string {
	return regexMeta.ReplaceAllString(s, `\$0`)
}

// CaseInsensitiveRegex builds a case-insensitive pattern that matches the
// trimmed input literally anywhere in a string. Empty input counts as absent.
func CaseInsensitiveRegex(f *Field, v any) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	re, err := regexp.Compile("(?i)" + RegexEscape(s))
	if err != nil {
		return nil, false, fail.Invalidf("Invalid search for property: %s.", f.Key)
	}
	return re, true, nil
}

/*
ProjectionMask validates a sub-object against the field's sub-schema. Every
resulting value must be false: a projection only ever removes fields from a
result.
*/
func ProjectionMask(f *Field, v any) (any, bool, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false, fail.Invalidf("Received invalid type for property: %s. Expected: object. Found: %s.", f.Key, typeName(v))
	}
	res, err := Validate(obj, f.Fields)
	if err != nil {
		return nil, false, err
	}
	p := make(Projection, len(res))
	for key, val := range res {
		if b, isBool := val.(bool); !isBool || b {
			return nil, false, fail.Invalidf("Invalid projection value.")
		}
		p[key] = false
	}
	return p, true, nil
}

// Exclude builds the sub-schema for a projection mask over the given keys.
func Exclude(keys ...string) Schema {
	s := make(Schema, len(keys))
	for i, key := range keys {
		s[i] = Field{Key: key, Type: Bool}
	}
	return s
}

/*
SortOrder parses a comma separated list of keys, each optionally prefixed by
"-" for descending order, e.g. "-created,name". Keys outside allowed are
rejected.
*/
func SortOrder(allowed ...string) Filter {
	return func(f *Field, v any) (any, bool, error) {
		var parts []string
		switch s := v.(type) {
		case nil:
			return nil, false, nil
		case string:
			parts = strings.Split(s, ",")
		case []string:
			parts = s
		case []any:
			for _, item := range s {
				str, ok := item.(string)
				if !ok {
					return nil, false, fail.Invalidf("Received invalid type for property: %s. Expected: string. Found: %s.", f.Key, typeName(item))
				}
				parts = append(parts, str)
			}
		default:
			return nil, false, fail.Invalidf("Received invalid type for property: %s. Expected: string. Found: %s.", f.Key, typeName(v))
		}

		var keys []SortKey
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := SortKey{Field: part}
			if strings.HasPrefix(part, "-") {
				key = SortKey{Field: part[1:], Desc: true}
			} else if strings.HasPrefix(part, "+") {
				key.Field = part[1:]
			}
			if !contains(allowed, key.Field) {
				return nil, false, fail.Invalidf("Cannot sort by property: %s.", key.Field)
			}
			keys = append(keys, key)
		}
		if len(keys) == 0 {
			return nil, false, nil
		}
		return keys, true, nil
	}
}

// NonNegativeInt accepts whole numbers and numeric strings (query
// parameters) that are zero or greater.
func NonNegativeInt(f *Field, v any) (any, bool, error) {
	var n float64
	switch num := v.(type) {
	case nil:
		return nil, false, nil
	case string:
		num = strings.TrimSpace(num)
		if num == "" {
			return nil, false, nil
		}
		parsed, err := strconv.Atoi(num)
		if err != nil {
			return nil, false, fail.Invalidf("Expected a non-negative integer for property: %s.", f.Key)
		}
		n = float64(parsed)
	default:
		var ok bool
		n, ok = toFloat(v)
		if !ok {
			return nil, false, fail.Invalidf("Expected a non-negative integer for property: %s.", f.Key)
		}
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return nil, false, fail.Invalidf("Expected a non-negative integer for property: %s.", f.Key)
	}
	return int(n), true, nil
}

// StringList accepts an array whose elements are all strings.
func StringList(f *Field, v any) (any, bool, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true, nil
	case []any:
		res := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false, fail.Invalidf("Expected array of strings for property: %s.", f.Key)
			}
			res[i] = s
		}
		return res, true, nil
	}
	return nil, false, fail.Invalidf("Expected array for property: %s.", f.Key)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
