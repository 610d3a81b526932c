// Package store is the key/value persistence layer the dashboard keeps its
// settings and caches in. A Store handle plays the part of one browser tab:
// writes made through one handle are announced to subscribers of the other
// handles that share the same backing data, never to the writer itself.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("no value for key")
)

// Store reads and writes string values by key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Event describes a change made to the shared data by another handle.
type Event struct {
	Key      string
	NewValue string
	Deleted  bool
}

// Notifier delivers change events made elsewhere.
type Notifier interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// GetJSON decodes the JSON value stored under key into out.
func GetJSON(s Store, key string, out any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key as JSON.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// listeners is the subscription registry shared by the Store implementations.
type listeners struct {
	next int
	fns  map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) int {
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	l.next++
	l.fns[l.next] = fn
	return l.next
}

func (l *listeners) remove(id int) {
	delete(l.fns, id)
}

func (l *listeners) snapshot() []func(Event) {
	out := make([]func(Event), 0, len(l.fns))
	for _, fn := range l.fns {
		out = append(out, fn)
	}
	return out
}
