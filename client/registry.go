package client

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash"
)

// Registry hands out one Client per connection tuple (connection string,
// login, password, schemas, session options, array-results flag). It
// replaces a process-wide instance cache: create one and pass it to the
// code that needs Clients.
type Registry struct {
	mu      sync.Mutex
	clients map[uint64]*Client
	base    ClientOptions
}

// NewRegistry creates a registry whose Clients start from base; per-call
// tuple fields override it.
func NewRegistry(base *ClientOptions) *Registry {
	opts := DefaultOptions()
	if base != nil {
		opts = *base
	}
	return &Registry{
		clients: make(map[uint64]*Client),
		base:    opts,
	}
}

// Key identifies a Client in a Registry.
type Key struct {
	DSN            string
	Login          string
	Password       string
	Schemas        []string
	SessionOptions map[string]string
	ArrayResults   bool
}

// hash returns the xxhash of the canonical rendering of k. Schema order is
// significant; session options are sorted by name.
func (k Key) hash() uint64 {
	var sb strings.Builder
	writePart := func(s string) {
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	}

	writePart(k.DSN)
	writePart(k.Login)
	writePart(k.Password)
	for _, s := range k.Schemas {
		writePart(s)
	}
	sb.WriteByte('|')

	names := make([]string, 0, len(k.SessionOptions))
	for name := range k.SessionOptions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writePart(name)
		writePart(k.SessionOptions[name])
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatBool(k.ArrayResults))

	return xxhash.Sum64String(sb.String())
}

// Get returns the Client for k, creating it on first request.
func (r *Registry) Get(k Key) (*Client, error) {
	id := k.hash()

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[id]; ok && c.GetState() != CLOSED {
		return c, nil
	}

	opts := r.base
	opts.Login = k.Login
	opts.Password = k.Password
	opts.ArrayResults = k.ArrayResults
	if len(k.Schemas) > 0 {
		opts.Schemas = append([]string(nil), k.Schemas...)
	}
	if len(k.SessionOptions) > 0 {
		opts.SessionOptions = make(map[string]string, len(k.SessionOptions))
		for name, v := range k.SessionOptions {
			opts.SessionOptions[name] = v
		}
	}

	c, err := New(k.DSN, &opts)
	if err != nil {
		return nil, err
	}
	r.clients[id] = c
	return c, nil
}

// Remove drops the Client for k without closing it. It reports whether one
// was registered.
func (r *Registry) Remove(k Key) bool {
	id := k.hash()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	return true
}

// Len returns the number of registered Clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close closes every registered Client and empties the registry. The first
// close error is returned after all Clients were attempted.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[uint64]*Client)
	r.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
