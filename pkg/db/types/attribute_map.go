package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// AttributeKind enumerates the value kinds an attribute may hold. Keeping the
// set closed gives the merge and readiness code a typed surface instead of an
// open "any" map.
type AttributeKind int

const (
	KindString AttributeKind = iota
	KindNumber
	KindBool
	KindStringList
)

// AttributeValue is one scalar (or string-list) attribute value.
type AttributeValue struct {
	Kind AttributeKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// String builds a string-kind value.
func String(v string) AttributeValue { return AttributeValue{Kind: KindString, Str: v} }

// Number builds a number-kind value.
func Number(v float64) AttributeValue { return AttributeValue{Kind: KindNumber, Num: v} }

// Bool builds a bool-kind value.
func Bool(v bool) AttributeValue { return AttributeValue{Kind: KindBool, Bool: v} }

// StringList builds a list-kind value.
func StringList(v ...string) AttributeValue { return AttributeValue{Kind: KindStringList, List: v} }

// IsZero reports whether the value carries no usable content.
func (v AttributeValue) IsZero() bool {
	switch v.Kind {
	case KindString:
		return v.Str == ""
	case KindStringList:
		return len(v.List) == 0
	default:
		return false
	}
}

// Equal compares two values across all kinds.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindStringList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value as its native JSON scalar or array.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindStringList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("unknown attribute kind %d", v.Kind)
}

// UnmarshalJSON accepts any of the supported native JSON shapes.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case string:
		*v = String(typed)
	case float64:
		*v = Number(typed)
	case bool:
		*v = Bool(typed)
	case []any:
		list := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("attribute list items must be strings, got %T", item)
			}
			list = append(list, s)
		}
		*v = StringList(list...)
	case nil:
		*v = AttributeValue{}
	default:
		return fmt.Errorf("unsupported attribute value type %T", raw)
	}
	return nil
}

// AttributeMap is a JSONB column holding canonical or per-offer attributes.
type AttributeMap map[string]AttributeValue

// Keys returns the map keys in sorted order.
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the map.
func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer for the jsonb column.
func (m AttributeMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the jsonb column.
func (m *AttributeMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch typed := src.(type) {
	case []byte:
		data = typed
	case string:
		data = []byte(typed)
	default:
		return fmt.Errorf("cannot scan %T into AttributeMap", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
