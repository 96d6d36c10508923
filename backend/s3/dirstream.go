package s3

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coreobj/accessor"
)

// dirStream lazily pages through ListObjectsV2, holding at most one page
// of entries in memory at a time.
type dirStream struct {
	backend *Backend
	prefix  string

	page    []accessor.DirEntry
	pos     int
	token   string
	done    bool
	started bool
}

func newDirStream(backend *Backend, prefix string) *dirStream {
	return &dirStream{backend: backend, prefix: prefix}
}

func (s *dirStream) Next(ctx context.Context) (accessor.DirEntry, error) {
	for s.pos >= len(s.page) {
		if s.done {
			return accessor.DirEntry{}, io.EOF
		}
		if err := s.fetch(ctx); err != nil {
			return accessor.DirEntry{}, err
		}
	}
	e := s.page[s.pos]
	s.pos++
	return e, nil
}

func (s *dirStream) Close() error { return nil }

func (s *dirStream) fetch(ctx context.Context) error {
	b := s.backend

	start := time.Now()
	ctx, span := accessor.StartOpSpan(ctx, "list_page", s.prefix)
	var retErr error
	defer func() {
		accessor.EndOpSpan(span, retErr)
		b.record("list", start, retErr)
	}()
	fail := func(err error) error { retErr = err; return err }

	q := url.Values{}
	q.Set("list-type", "2")
	q.Set("delimiter", "/")
	q.Set("prefix", s.prefix)
	if s.started && s.token != "" {
		q.Set("continuation-token", s.token)
	}
	s.started = true
	b.log().Debug("s3 list_page", slog.String("prefix", s.prefix), slog.String("continuation_token", s.token))

	reqURL := b.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(accessor.NewObjectError("list", s.prefix, accessor.KindOther, err))
	}
	if err := b.signer.sign(ctx, req, emptyPayloadHash); err != nil {
		return fail(accessor.NewObjectError("list", s.prefix, accessor.KindOther, err))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fail(accessor.NewObjectError("list", s.prefix, accessor.KindOther, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fail(accessor.NewObjectError("list", s.prefix, classifyStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode)))
		b.log().Warn("s3 list_page: backend status translated to error",
			slog.String("prefix", s.prefix), slog.Int("status", resp.StatusCode), slog.Any("error", err))
		return err
	}

	var result listBucketResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fail(accessor.NewObjectError("list", s.prefix, accessor.KindOther, err))
	}

	page := make([]accessor.DirEntry, 0, len(result.Contents)+len(result.CommonPrefixes))
	for _, c := range result.Contents {
		if c.Key == s.prefix {
			continue
		}
		page = append(page, accessor.NewDirEntry(b, accessor.ModeFile, c.Key))
	}
	for _, p := range result.CommonPrefixes {
		page = append(page, accessor.NewDirEntry(b, accessor.ModeDir, p.Prefix))
	}

	s.page = page
	s.pos = 0
	if result.IsTruncated && result.NextContinuationToken != "" {
		s.token = result.NextContinuationToken
	} else {
		s.done = true
	}
	return nil
}
