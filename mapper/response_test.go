package mapper

import (
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestResponseMapper_MapCell(t *testing.T) {
	mapper := NewResponseMapper(true)

	tests := []struct {
		name     string
		input    interface{}
		expected interface{}
	}{
		{"plain text", "hello", "hello"},
		{"empty text", "", ""},
		{"number text", "42", json.Number("42")},
		{"float text", "3.50", json.Number("3.50")},
		{"bool text", "true", true},
		{"json null kept verbatim", "null", "null"},
		{"object", `{"a":1}`, map[string]interface{}{"a": json.Number("1")}},
		{"array", `[1,"x"]`, []interface{}{json.Number("1"), "x"}},
		{"quoted string", `"abc"`, "abc"},
		{"trailing garbage", "12 apples", "12 apples"},
		{"broken json", `{"a":`, `{"a":`},
		{"bytes", []byte(`[true]`), []interface{}{true}},
		{"nil to empty string", nil, ""},
		{"native int passes through", int64(7), int64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapper.MapCell(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("MapCell() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestResponseMapper_KeepsNulls(t *testing.T) {
	mapper := NewResponseMapper(false)

	if got := mapper.MapCell(nil); got != nil {
		t.Errorf("MapCell(nil) = %#v, want nil", got)
	}
}

func TestResponseMapper_MapRow(t *testing.T) {
	mapper := NewResponseMapper(true)

	row := mapper.MapRow([]string{"id", "name", "meta"}, []interface{}{"1", nil, `{"k":"v"}`})

	expected := map[string]interface{}{
		"id":   json.Number("1"),
		"name": "",
		"meta": map[string]interface{}{"k": "v"},
	}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("MapRow() = %#v, want %#v", row, expected)
	}
}

func TestToString(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"float", 3.14, "3.14"},
		{"bool", true, "true"},
		{"time", ts, "2024-01-02T03:04:05Z"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.input); got != tt.expected {
				t.Errorf("ToString() = %v, want %v", got, tt.expected)
			}
		})
	}
}
