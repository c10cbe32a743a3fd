package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SettingType declares how a setting value is parsed and rendered.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingJSON    SettingType = "json"
)

// Valid reports whether t is a known setting type.
func (t SettingType) Valid() bool {
	switch t {
	case SettingString, SettingNumber, SettingBoolean, SettingJSON:
		return true
	}
	return false
}

// SettingCategory partitions the runtime configuration namespace.
type SettingCategory string

const (
	CategoryFileUpload      SettingCategory = "file_upload"
	CategoryTestExecution   SettingCategory = "test_execution"
	CategoryDatabaseCleanup SettingCategory = "database_cleanup"
	CategorySecurity        SettingCategory = "security"
	CategorySystem          SettingCategory = "system"
)

// SettingCategories lists the known categories in display order.
var SettingCategories = []SettingCategory{
	CategoryFileUpload,
	CategoryTestExecution,
	CategoryDatabaseCleanup,
	CategorySecurity,
	CategorySystem,
}

// Valid reports whether c is a known category.
func (c SettingCategory) Valid() bool {
	for _, known := range SettingCategories {
		if c == known {
			return true
		}
	}
	return false
}

// SettingEntry is one runtime configuration entry. Key is unique within its
// category. If Editable is false the value may be displayed but is never
// mutated by the client.
type SettingEntry struct {
	Key         string          `json:"key"`
	Category    SettingCategory `json:"category"`
	Type        SettingType     `json:"type"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
	Editable    bool            `json:"editable"`
}

// ParseSettingValue parses a raw user-entered string according to the
// declared type and returns the canonical JSON encoding to submit. The raw
// form must round-trip losslessly through this codec.
func ParseSettingValue(t SettingType, raw string) (json.RawMessage, error) {
	switch t {
	case SettingString:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		return data, nil

	case SettingNumber:
		trimmed := strings.TrimSpace(raw)
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return json.RawMessage(trimmed), nil

	case SettingBoolean:
		switch strings.TrimSpace(strings.ToLower(raw)) {
		case "true":
			return json.RawMessage("true"), nil
		case "false":
			return json.RawMessage("false"), nil
		}
		return nil, fmt.Errorf("not a boolean: %q", raw)

	case SettingJSON:
		var v interface{}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		// Re-encode so semantically equal inputs compare equal.
		canon, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return canon, nil
	}
	return nil, fmt.Errorf("unknown setting type: %q", t)
}

// FormatSettingValue renders a stored value for display/editing. Inverse of
// ParseSettingValue for every well-formed value.
func FormatSettingValue(t SettingType, value json.RawMessage) string {
	switch t {
	case SettingString:
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return s
		}
	case SettingNumber, SettingBoolean:
		return strings.TrimSpace(string(value))
	case SettingJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err == nil {
			return buf.String()
		}
	}
	return string(value)
}

// SettingValuesEqual reports whether two encoded values are equal under the
// given type: numeric equality for number ("100.0" equals "100"), structural
// equality for json, byte equality for string and boolean.
func SettingValuesEqual(t SettingType, a, b json.RawMessage) bool {
	switch t {
	case SettingNumber:
		fa, errA := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
		fb, errB := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if errA != nil || errB != nil {
			return false
		}
		return fa == fb

	case SettingJSON:
		var va, vb interface{}
		if err := json.Unmarshal(a, &va); err != nil {
			return false
		}
		if err := json.Unmarshal(b, &vb); err != nil {
			return false
		}
		return reflect.DeepEqual(va, vb)
	}
	return strings.TrimSpace(string(a)) == strings.TrimSpace(string(b))
}
