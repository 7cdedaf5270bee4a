package cookie

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store reads and writes named cookies through a Jar with default options.
type Store struct {
	jar      Jar
	defaults Options
}

// NewStore creates a Store over jar. opts become the defaults for every Set.
func NewStore(jar Jar, opts ...Option) *Store {
	return &Store{
		jar:      jar,
		defaults: applyOptions(Options{}, opts),
	}
}

// Defaults returns a copy of the store's default options.
func (s *Store) Defaults() Options {
	return s.defaults
}

// Get returns the value of the first cookie called name.
func (s *Store) Get(name string) (string, bool) {
	for _, p := range parsePairs(s.jar.Cookie()) {
		if p[0] == name {
			return p[1], true
		}
	}
	return "", false
}

// Set writes name=value using the defaults overridden by opts.
func (s *Store) Set(name, value string, opts ...Option) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	s.jar.SetCookie(Serialize(name, value, applyOptions(s.defaults, opts)))
	return nil
}

// Delete expires name. Domain and path must match the original write or the
// browser keeps the cookie.
func (s *Store) Delete(name string, opts ...Option) error {
	options := applyOptions(s.defaults, opts)
	options.Expires = time.Unix(0, 0)
	options.MaxAge = 0
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	s.jar.SetCookie(Serialize(name, "", options))
	return nil
}

// GetJSON decodes the JSON value of name into dest.
func (s *Store) GetJSON(name string, dest any) error {
	raw, ok := s.Get(name)
	if !ok {
		return ErrCookieNotFound
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshal cookie %s: %w", name, err)
	}
	return nil
}

// SetJSON writes value as a raw JSON cookie.
func (s *Store) SetJSON(name string, value any, opts ...Option) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cookie %s: %w", name, err)
	}
	return s.Set(name, string(data), opts...)
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "=; \t\r\n,")
}
