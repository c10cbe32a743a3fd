package models

import (
	"testing"
)

func TestParseSettingValueByType(t *testing.T) {
	tests := []struct {
		name    string
		typ     SettingType
		raw     string
		want    string
		wantErr bool
	}{
		{"string", SettingString, "daily", `"daily"`, false},
		{"string with quotes", SettingString, `say "hi"`, `"say \"hi\""`, false},
		{"number int", SettingNumber, "42", "42", false},
		{"number float", SettingNumber, "2.5", "2.5", false},
		{"number padded", SettingNumber, "  10 ", "10", false},
		{"number invalid", SettingNumber, "ten", "", true},
		{"bool true", SettingBoolean, "true", "true", false},
		{"bool mixed case", SettingBoolean, "True", "true", false},
		{"bool invalid", SettingBoolean, "yes", "", true},
		{"json object", SettingJSON, `{"a": 1}`, `{"a":1}`, false},
		{"json array", SettingJSON, `[1, 2]`, `[1,2]`, false},
		{"json malformed", SettingJSON, `{"a":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSettingValue(tt.typ, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSettingValue(%q) expected error, got %s", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSettingValue(%q) error: %v", tt.raw, err)
			}
			if string(got) != tt.want {
				t.Errorf("ParseSettingValue(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSettingValueRoundTrip(t *testing.T) {
	// A displayed value must re-parse to something structurally equal to
	// the stored value.
	tests := []struct {
		typ   SettingType
		value string
	}{
		{SettingString, `"weekly"`},
		{SettingNumber, `100`},
		{SettingBoolean, `false`},
		{SettingJSON, `{"retries":3,"paths":["/a","/b"]}`},
	}

	for _, tt := range tests {
		displayed := FormatSettingValue(tt.typ, []byte(tt.value))
		reparsed, err := ParseSettingValue(tt.typ, displayed)
		if err != nil {
			t.Fatalf("%s: reparse of %q failed: %v", tt.typ, displayed, err)
		}
		if !SettingValuesEqual(tt.typ, []byte(tt.value), reparsed) {
			t.Errorf("%s: %s did not round-trip (got %s)", tt.typ, tt.value, reparsed)
		}
	}
}

func TestSettingValuesEqualNumberIsNumeric(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"100", "100.0", true},
		{"100", "1e2", true},
		{"100", "100.5", false},
		{"100", "ten", false},
	}
	for _, tt := range tests {
		if got := SettingValuesEqual(SettingNumber, []byte(tt.a), []byte(tt.b)); got != tt.want {
			t.Errorf("SettingValuesEqual(number, %s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSettingValuesEqualJSONIsStructural(t *testing.T) {
	a := []byte(`{"b": 2, "a": 1}`)
	b := []byte(`{"a":1,"b":2}`)
	if !SettingValuesEqual(SettingJSON, a, b) {
		t.Error("key order must not affect json equality")
	}
	c := []byte(`{"a":1,"b":3}`)
	if SettingValuesEqual(SettingJSON, a, c) {
		t.Error("different values must not compare equal")
	}
}

func TestSettingCategoryValid(t *testing.T) {
	for _, c := range SettingCategories {
		if !c.Valid() {
			t.Errorf("category %s should be valid", c)
		}
	}
	if SettingCategory("billing").Valid() {
		t.Error("unknown category should be invalid")
	}
}
