// Package kv defines the key/value contract branch records are stored
// behind, plus the Redis, Postgres and in-memory implementations.
package kv

import (
	"context"
	"errors"
)

// Store errors
var (
	// ErrNotFound indicates that a key or record does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrBinaryContent indicates that binary content was read where UTF-8
	// text was expected.
	ErrBinaryContent = errors.New("content is not valid UTF-8")
)

// Reader is a read-only view over one record's fields. Implementations
// serve reads from a snapshot taken when the reader was opened, so a load
// always reflects a single committed state of the record.
type Reader interface {
	Read(key string) (Content, error)
}

// Writer persists a full field set for one record. The write is
// all-or-nothing: either every field is committed or none is.
type Writer interface {
	Write(ctx context.Context, fields map[string]Content) error
}

// Store groups records under string roots (one root per record id).
type Store interface {
	// Reader opens a snapshot of the record at root. Returns ErrNotFound
	// if the record does not exist.
	Reader(ctx context.Context, root string) (Reader, error)

	// Writer returns a writer for the record at root.
	Writer(root string) Writer

	// Delete removes the record at root. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, root string) error

	// List returns the roots of all records in the store.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// snapshotReader serves reads from an in-memory copy of a record.
type snapshotReader struct {
	fields map[string]Content
}

// NewSnapshotReader wraps an already-materialized field set in a Reader.
func NewSnapshotReader(fields map[string]Content) Reader {
	return &snapshotReader{fields: fields}
}

func (r *snapshotReader) Read(key string) (Content, error) {
	c, ok := r.fields[key]
	if !ok {
		return Content{}, ErrNotFound
	}
	return c, nil
}
