// Package storage holds the media history backends and the policy wrappers
// that sit in front of them. Everything here implements Store, so wrappers
// and backends can be stacked in any order.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcus-crane/mediaspyy/media"
)

type Store interface {
	// Push appends a record and returns it as stored, which may include a
	// backend assigned ID. A failed push leaves the history untouched.
	Push(ctx context.Context, r media.Record) (media.Record, error)
	// Peek returns the newest record, or nil if the history is empty
	Peek(ctx context.Context) (*media.Record, error)
	// Last returns up to n of the newest records, newest first. Negative
	// values of n are treated as their magnitude.
	Last(ctx context.Context, n int) ([]media.Record, error)
}

// Deleter is implemented by stores that can remove a single record. It isn't
// part of Store as not every deployment of the remote API supports it.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound          = errors.New("media record not found")
	ErrDeleteUnsupported = errors.New("store does not support deleting records")
)

// StatusError is returned by Remote whenever the server answers with
// anything other than a 2xx.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
}

// Delete removes a record from s if it knows how to
func Delete(ctx context.Context, s Store, id string) error {
	d, ok := s.(Deleter)
	if !ok {
		return ErrDeleteUnsupported
	}
	return d.Delete(ctx, id)
}

func clamp(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// newestFirst copies the last n entries of an oldest-first slice in reverse
func newestFirst(records []media.Record, n int) []media.Record {
	n = clamp(n)
	if n > len(records) {
		n = len(records)
	}
	out := make([]media.Record, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		out = append(out, records[i])
	}
	return out
}
