package dialect

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissingDriver is returned when a connection string has no driver prefix.
	ErrMissingDriver = errors.New("connection string has no driver prefix")

	// ErrUnsupportedDriver is returned for drivers other than Postgres and MySQL.
	ErrUnsupportedDriver = errors.New("unsupported driver")

	// ErrMissingDatabase is returned when dbname cannot be extracted.
	ErrMissingDatabase = errors.New("connection string has no dbname")
)

// driverAliases maps driver prefixes to engines.
var driverAliases = map[string]Kind{
	"pgsql":      Postgres,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"mysql":      MySQL,
}

// DSN is a parsed connection string of the form
//
//	driver:key=value;key=value
//
// e.g. "pgsql:host=localhost;port=5432;dbname=shop".
type DSN struct {
	raw    string
	driver string
	kind   Kind
	keys   []string
	params map[string]string
}

// ParseDSN parses raw and resolves its engine.
func ParseDSN(raw string) (*DSN, error) {
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return nil, errors.Wrapf(ErrMissingDriver, "parse %q", raw)
	}

	driver := strings.ToLower(strings.TrimSpace(raw[:idx]))
	kind, ok := driverAliases[driver]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDriver, "driver %q", driver)
	}

	d := &DSN{
		raw:    raw,
		driver: driver,
		kind:   kind,
		params: make(map[string]string),
	}

	for _, part := range strings.Split(raw[idx+1:], ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if key == "" {
			continue
		}
		if _, seen := d.params[key]; !seen {
			d.keys = append(d.keys, key)
		}
		d.params[key] = strings.TrimSpace(kv[1])
	}

	return d, nil
}

// String returns the connection string as given.
func (d *DSN) String() string { return d.raw }

// Driver returns the driver prefix as written, lower-cased.
func (d *DSN) Driver() string { return d.driver }

// Kind returns the engine.
func (d *DSN) Kind() Kind { return d.kind }

// Get returns the value of key and whether it was present.
func (d *DSN) Get(key string) (string, bool) {
	v, ok := d.params[strings.ToLower(key)]
	return v, ok
}

// Keys returns parameter names in the order they first appeared.
func (d *DSN) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Database returns the dbname parameter.
func (d *DSN) Database() (string, error) {
	name, ok := d.params["dbname"]
	if !ok || name == "" {
		return "", errors.Wrapf(ErrMissingDatabase, "parse %q", d.raw)
	}
	return name, nil
}

// credentials fills empty login and password from the connection string's
// user and password keys.
func credentials(dsn *DSN, login, password string) (string, string) {
	if login == "" {
		login, _ = dsn.Get("user")
	}
	if password == "" {
		password, _ = dsn.Get("password")
	}
	return login, password
}
