// Package accessor provides a unified object-storage access layer for Go.
//
// It supports multiple storage backends (in-memory, S3-compatible, etc.)
// through a single polymorphic Accessor contract: the same operation
// records, metadata schema, streaming reader/writer semantics, and error
// taxonomy apply regardless of which backend is behind the handle.
//
// Basic usage:
//
//	backend := memory.New()
//	w, _ := backend.Write(ctx, accessor.OpWrite{Path: "a/b", Size: 5})
//	w.Write([]byte("hello"))
//	w.Close()
//	r, _ := backend.Read(ctx, accessor.OpRead{Path: "a/b"})
//	io.ReadAll(r)
package accessor

import (
	"context"
	"io"
)

// Accessor is the polymorphic contract every storage backend implements.
//
// Accessor values are safe for concurrent use by multiple goroutines and
// are ordinarily constructed once (via a backend's Builder or the package
// Registry) and shared. All methods accept a context.Context; blocking
// operations honor cancellation where the underlying transport allows it.
type Accessor interface {
	// Metadata describes this backend instance: its scheme, root path
	// prefix, and a human-readable name (bucket name for S3, "memory"
	// for the in-memory backend). It never fails.
	Metadata() AccessorMetadata

	// Create makes an empty object at op.Path with the given mode.
	// op.Mode must not be ModeUnknown.
	Create(ctx context.Context, op OpCreate) error

	// Read opens a byte-range view of the object at op.Path. The
	// returned reader must be closed after use. Returns a NotFound
	// error if the object does not exist, or an Other error if the
	// requested offset/size window exceeds the object's length.
	Read(ctx context.Context, op OpRead) (io.ReadCloser, error)

	// Write returns a writer that expects exactly op.Size bytes.
	// Closing the writer commits the object; closing with the wrong
	// number of bytes fails and leaves any prior value untouched.
	Write(ctx context.Context, op OpWrite) (io.WriteCloser, error)

	// Stat returns metadata for op.Path, or a NotFound error if absent.
	Stat(ctx context.Context, op OpStat) (ObjectMetadata, error)

	// Delete removes op.Path. Deleting a path that does not exist is
	// not an error.
	Delete(ctx context.Context, op OpDelete) error

	// List returns a lazy stream of the immediate children of op.Path.
	// Listing is non-recursive.
	List(ctx context.Context, op OpList) (DirStream, error)
}
