// Package memory provides an in-process Accessor backend for the
// unified object-storage access layer.
//
// Data lives in a single locked map and is lost when the process exits.
// It is the reference backend for tests and staging: the cheapest place
// to exercise the Accessor contract's streaming and range semantics
// without any network.
package memory

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/coreobj/accessor"
)

func init() {
	accessor.Register(string(accessor.SchemeMemory), func(map[string]string) (accessor.Accessor, error) {
		return New(), nil
	})
}

// Backend is a coarse-locked, in-memory Accessor implementation. One
// sync.Mutex covers the whole key space; it is held only across map
// reads/writes, never across I/O.
type Backend struct {
	mu      sync.Mutex
	objects map[string][]byte
	logger  *slog.Logger
}

// New returns an empty memory backend.
func New() *Backend {
	return &Backend{objects: make(map[string][]byte), logger: slog.Default()}
}

// WithLogger attaches a structured logger, returning the same Backend
// for chaining. Logging is advisory only: debug for routine operations,
// warn when a short write is rejected.
func (b *Backend) WithLogger(logger *slog.Logger) *Backend {
	b.logger = logger
	return b
}

// log returns b.logger, falling back to slog.Default() for backends
// constructed without New (e.g. a zero-value Backend in tests).
func (b *Backend) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

func (b *Backend) Metadata() accessor.AccessorMetadata {
	return accessor.AccessorMetadata{Scheme: accessor.SchemeMemory, Root: "/", Name: "memory"}
}

func (b *Backend) Create(ctx context.Context, op accessor.OpCreate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log().Debug("memory create", slog.String("path", op.Path), slog.String("mode", op.Mode.String()))
	switch op.Mode {
	case accessor.ModeFile:
		if strings.HasSuffix(op.Path, "/") {
			return accessor.NewObjectError("create", op.Path, accessor.KindOther,
				errInvalidKeyForm("file key must not end in '/'"))
		}
	case accessor.ModeDir:
		if !strings.HasSuffix(op.Path, "/") {
			return accessor.NewObjectError("create", op.Path, accessor.KindOther,
				errInvalidKeyForm("directory key must end in '/'"))
		}
	default:
		panic("memory: Create called with ModeUnknown")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[op.Path] = []byte{}
	return nil
}

func (b *Backend) Read(ctx context.Context, op accessor.OpRead) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.log().Debug("memory read", slog.String("path", op.Path))

	// Clone under the lock so later writers can't mutate bytes we're
	// about to hand to the caller.
	b.mu.Lock()
	data, ok := b.objects[op.Path]
	var buf []byte
	if ok {
		buf = make([]byte, len(data))
		copy(buf, data)
	}
	b.mu.Unlock()
	if !ok {
		return nil, accessor.NewObjectError("read", op.Path, accessor.KindNotFound, nil)
	}

	if op.Offset != nil {
		offset := *op.Offset
		if offset >= uint64(len(buf)) {
			return nil, accessor.NewObjectError("read", op.Path, accessor.KindOther,
				errRangeOutOfBounds("offset out of bound"))
		}
		buf = buf[offset:]
	}
	if op.Size != nil {
		size := *op.Size
		if size > uint64(len(buf)) {
			return nil, accessor.NewObjectError("read", op.Path, accessor.KindOther,
				errRangeOutOfBounds("size out of bound"))
		}
		buf = buf[:size]
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (b *Backend) Write(ctx context.Context, op accessor.OpWrite) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.log().Debug("memory write", slog.String("path", op.Path), slog.Uint64("size", op.Size))
	return &writer{backend: b, path: op.Path, size: op.Size}, nil
}

func (b *Backend) Stat(ctx context.Context, op accessor.OpStat) (accessor.ObjectMetadata, error) {
	if err := ctx.Err(); err != nil {
		return accessor.ObjectMetadata{}, err
	}
	b.log().Debug("memory stat", slog.String("path", op.Path))

	if strings.HasSuffix(op.Path, "/") {
		return accessor.NewDirMetadata(), nil
	}

	b.mu.Lock()
	data, ok := b.objects[op.Path]
	b.mu.Unlock()
	if !ok {
		return accessor.ObjectMetadata{}, accessor.NewObjectError("stat", op.Path, accessor.KindNotFound, nil)
	}
	return accessor.NewFileMetadata(uint64(len(data))), nil
}

func (b *Backend) Delete(ctx context.Context, op accessor.OpDelete) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log().Debug("memory delete", slog.String("path", op.Path))
	b.mu.Lock()
	delete(b.objects, op.Path)
	b.mu.Unlock()
	return nil
}

func (b *Backend) List(ctx context.Context, op accessor.OpList) (accessor.DirStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.log().Debug("memory list", slog.String("path", op.Path))

	prefix := op.Path
	if prefix == "/" {
		prefix = ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var entries []accessor.DirEntry
	for key := range b.objects {
		if !sameLevelChild(key, prefix) {
			continue
		}
		mode := accessor.ModeFile
		if strings.HasSuffix(key, "/") {
			mode = accessor.ModeDir
		}
		entries = append(entries, accessor.NewDirEntry(b, mode, key))
	}
	return accessor.NewSliceDirStream(entries), nil
}

// sameLevelChild reports whether key is an immediate child of prefix:
// key starts with prefix, key != prefix, and the first '/' found after
// prefix's length (if any) is the last character of key.
func sameLevelChild(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) || key == prefix {
		return false
	}
	rest := key[len(prefix):]
	idx := strings.IndexByte(rest, '/')
	return idx == -1 || idx == len(rest)-1
}

type writer struct {
	backend *Backend
	path    string
	size    uint64
	buf     bytes.Buffer
	mu      sync.Mutex
	closed  bool
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, accessor.ErrWriterClosed
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if uint64(w.buf.Len()) != w.size {
		err := accessor.NewObjectError("write", w.path, accessor.KindOther,
			errShortWrite(w.size, w.buf.Len()))
		w.backend.log().Warn("memory write: short write rejected",
			slog.String("path", w.path), slog.Any("error", err))
		return err
	}

	w.backend.mu.Lock()
	w.backend.objects[w.path] = w.buf.Bytes()
	w.backend.mu.Unlock()
	return nil
}
