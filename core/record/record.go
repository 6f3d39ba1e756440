// Package record holds the schema-less entity records returned by the ERP backend
// and the fixed lookup table describing each entity kind.
package record

import (
	"fmt"
	"strings"
)

// Getter is anything a descriptor can read a named field from.
type Getter interface {
	Get(key string) interface{}
}

// Map is one backend record: field name -> decoded JSON value.
type Map map[string]interface{}

var _ Getter = Map(nil)

func (m Map) Get(key string) interface{} {
	if m == nil {
		return nil
	}
	return m[key]
}

// Has reports whether key holds a present value (not nil, not the empty string).
func (m Map) Has(key string) bool {
	return present(m.Get(key))
}

// String returns the value under key with default string conversion, "" when absent.
func (m Map) String(key string) string {
	v := m.Get(key)
	if !present(v) {
		return ""
	}
	return Stringify(v)
}

// ID returns the first present identifier value of the kind.
func (m Map) ID(kind Kind) string {
	spec := Spec(kind)
	for _, f := range spec.IDFields() {
		if m.Has(f) {
			return m.String(f)
		}
	}
	return ""
}

// Clone returns a shallow copy of the record.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// FirstPresent returns the first present value among keys and its key.
func FirstPresent(rec Getter, keys ...string) (string, interface{}, bool) {
	for _, k := range keys {
		if v := rec.Get(k); present(v) {
			return k, v, true
		}
	}
	return "", nil, false
}

// Stringify converts a decoded JSON value with the default conversion.
// Whole float64 values (how encoding/json decodes numbers) print without a decimal part.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Stringify(e))
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func present(v interface{}) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}
