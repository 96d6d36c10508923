package s3

import "github.com/coreobj/accessor"

// classifyStatus maps an HTTP status code from S3 to an error kind.
func classifyStatus(code int) accessor.ErrorKind {
	switch code {
	case 404:
		return accessor.KindNotFound
	case 403:
		return accessor.KindPermissionDenied
	case 500, 502, 503, 504:
		return accessor.KindInterrupted
	default:
		return accessor.KindOther
	}
}
