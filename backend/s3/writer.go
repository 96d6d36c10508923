package s3

import (
	"context"
	"io"
	"net/http"

	"github.com/coreobj/accessor"
)

var writeAccepted = map[int]struct{}{http.StatusOK: {}, http.StatusCreated: {}}

// newWriter starts the PUT request for a streamed write and returns a
// writer whose Close awaits that request's outcome. The body is signed
// with the UNSIGNED-PAYLOAD sentinel since its bytes aren't known until
// the caller finishes writing them.
func (b *Backend) newWriter(ctx context.Context, key string, size uint64) (io.WriteCloser, error) {
	ch := make(chan []byte, 4)
	result := make(chan accessor.HTTPBodyResult, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.endpoint+"/"+key, accessor.NewChanReader(ch))
	if err != nil {
		return nil, accessor.NewObjectError("write", key, accessor.KindOther, err)
	}
	req.ContentLength = int64(size)
	req.Header.Set("x-amz-content-sha256", unsignedPayload)
	b.insertSSEHeaders(req, true)

	if err := b.signer.sign(ctx, req, unsignedPayload); err != nil {
		close(ch)
		return nil, accessor.NewObjectError("write", key, accessor.KindOther, err)
	}

	go func() {
		resp, err := b.client.Do(req)
		if err != nil {
			result <- accessor.HTTPBodyResult{Err: err}
			return
		}
		defer resp.Body.Close()
		result <- accessor.HTTPBodyResult{StatusCode: resp.StatusCode}
	}()

	return accessor.NewHTTPBodyWriter("write", key, size, ch, result, writeAccepted, classifyStatus), nil
}
