package accessor

import "fmt"

// ObjectMode distinguishes a file object from a directory placeholder.
type ObjectMode int

const (
	// ModeUnknown is never produced by Stat/List. Passing it to Create
	// is a programmer error, not a caller-input error, and panics.
	ModeUnknown ObjectMode = iota
	ModeFile
	ModeDir
)

func (m ObjectMode) String() string {
	switch m {
	case ModeFile:
		return "file"
	case ModeDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Scheme identifies which backend implementation an Accessor is.
type Scheme string

const (
	SchemeMemory Scheme = "memory"
	SchemeS3     Scheme = "s3"
)

// AccessorMetadata describes a backend instance.
type AccessorMetadata struct {
	Scheme Scheme
	Root   string
	Name   string
}

// OpCreate makes an empty object.
type OpCreate struct {
	Path string
	Mode ObjectMode
}

// OpRead requests a byte-range view of an object. A nil Offset means 0;
// a nil Size means read to the end of the object.
type OpRead struct {
	Path   string
	Offset *uint64
	Size   *uint64
}

// BytesRange renders the requested window as the value of an HTTP Range
// header. ok is false when neither Offset nor Size is set, in which case
// no Range header should be sent at all.
func (o OpRead) BytesRange() (value string, ok bool) {
	if o.Offset == nil && o.Size == nil {
		return "", false
	}
	offset := uint64(0)
	if o.Offset != nil {
		offset = *o.Offset
	}
	if o.Size == nil {
		return fmt.Sprintf("bytes=%d-", offset), true
	}
	end := offset + *o.Size - 1
	return fmt.Sprintf("bytes=%d-%d", offset, end), true
}

// OpWrite declares the exact number of bytes the returned writer must
// receive before Close commits the object.
type OpWrite struct {
	Path string
	Size uint64
}

// OpStat requests metadata for a single path.
type OpStat struct {
	Path string
}

// OpDelete removes a single path.
type OpDelete struct {
	Path string
}

// OpList requests the immediate children of a directory path.
type OpList struct {
	Path string
}
