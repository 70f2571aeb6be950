package mapper

import (
	"database/sql/driver"
	"math"
	"reflect"
	"time"
)

// BindValue infers the bound type of a parameter: booleans stay booleans,
// every integer kind becomes int64, nil stays NULL and everything else is
// sent as a string. Values the driver already knows how to encode
// (driver.Valuer, time.Time, []byte) are passed through.
func BindValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case int64:
		return v
	case string:
		return v
	case []byte, time.Time, driver.Valuer:
		return v
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return BindValue(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return ToString(u)
		}
		return int64(u)
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array, reflect.Map:
		// Arrays are encoded by the driver.
		return value
	default:
		return ToString(value)
	}
}

// BindValues applies BindValue to every element of args.
func BindValues(args []interface{}) []interface{} {
	if len(args) == 0 {
		return nil
	}
	out := make([]interface{}, len(args))
	for i, arg := range args {
		out[i] = BindValue(arg)
	}
	return out
}

// BindNamed applies BindValue to every value of a named parameter map.
func BindNamed(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = BindValue(v)
	}
	return out
}
