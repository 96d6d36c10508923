package accessor

import "time"

// ObjectMetadata describes an object returned from Stat. Directories
// carry only Mode; the remaining fields are meaningful for files and are
// zero-valued when unknown.
type ObjectMetadata struct {
	Mode ObjectMode

	// ContentLength is set for files whose size is known.
	ContentLength    uint64
	ContentLengthSet bool

	// ETag is the backend's opaque version tag, if any.
	ETag string

	// ContentMD5 mirrors ETag with surrounding quotes stripped, which is
	// what S3's ETag holds for non-multipart uploads.
	ContentMD5 string

	LastModified    time.Time
	LastModifiedSet bool
}

// NewDirMetadata returns the metadata synthesized for a directory path.
func NewDirMetadata() ObjectMetadata {
	return ObjectMetadata{Mode: ModeDir}
}

// NewFileMetadata returns file metadata with a known content length.
func NewFileMetadata(contentLength uint64) ObjectMetadata {
	return ObjectMetadata{Mode: ModeFile, ContentLength: contentLength, ContentLengthSet: true}
}

// DirEntry is one child returned by List: its backend, mode, and path.
type DirEntry struct {
	backend Accessor
	mode    ObjectMode
	path    string
}

// NewDirEntry constructs a DirEntry.
func NewDirEntry(backend Accessor, mode ObjectMode, path string) DirEntry {
	return DirEntry{backend: backend, mode: mode, path: path}
}

func (e DirEntry) Backend() Accessor { return e.backend }
func (e DirEntry) Mode() ObjectMode  { return e.mode }
func (e DirEntry) Path() string      { return e.path }
func (e DirEntry) IsDir() bool       { return e.mode == ModeDir }
