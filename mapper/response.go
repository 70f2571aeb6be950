// Package mapper converts between driver values and the values callers see:
// result cells on the way out, bound parameters on the way in.
package mapper

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ResponseMapper decodes raw result cells into row values.
type ResponseMapper struct {
	nullsToString bool
}

// NewResponseMapper creates a new response mapper. When nullsToString is
// set, NULL cells come back as "".
func NewResponseMapper(nullsToString bool) *ResponseMapper {
	return &ResponseMapper{nullsToString: nullsToString}
}

// MapRow zips column names with decoded cell values.
func (m *ResponseMapper) MapRow(columns []string, values []interface{}) map[string]interface{} {
	row := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		row[col] = m.MapCell(v)
	}
	return row
}

// MapCell decodes a single cell. Text cells holding valid JSON are decoded
// with numbers kept as json.Number; anything else, including text that
// decodes to JSON null, is returned verbatim. Non-text driver values are
// passed through.
func (m *ResponseMapper) MapCell(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		if m.nullsToString {
			return ""
		}
		return nil
	case []byte:
		return decodeJSON(string(v))
	case string:
		return decodeJSON(v)
	default:
		return v
	}
}

// decodeJSON returns the decoded value of s, or s itself when it is not a
// complete JSON document.
func decodeJSON(s string) interface{} {
	if !looksLikeJSON(s) {
		return s
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return s
	}
	var trailing interface{}
	if err := dec.Decode(&trailing); err != io.EOF {
		return s
	}
	if out == nil {
		return s
	}
	return out
}

func looksLikeJSON(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[', '"', '-', 't', 'f', 'n':
			return true
		default:
			return c >= '0' && c <= '9'
		}
	}
	return false
}

// ToString converts any value to a string.
func ToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
