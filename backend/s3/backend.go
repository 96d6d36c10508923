// Package s3 implements the Accessor contract against the S3 REST
// protocol: manual request construction and SigV4 signing (no
// high-level client), automatic region detection, server-side
// encryption header injection, and lazily-paginated listing.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreobj/accessor"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	accessor.Register(string(accessor.SchemeS3), func(config map[string]string) (accessor.Accessor, error) {
		return Build(ConfigFromMap(config))
	})
}

// Backend is an Accessor implementation backed by an S3-compatible REST
// endpoint.
type Backend struct {
	bucket   string
	root     string
	endpoint string
	region   string
	cfg      Config
	client   *http.Client
	signer   *signer
	metrics  *Metrics
	logger   *slog.Logger
}

// Build resolves cfg into a ready Backend: it validates the bucket,
// normalizes the root, detects the region (possibly making one unsigned
// HEAD request), and rewrites the endpoint for path-style or
// virtual-host-style addressing.
func Build(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root := normalizeRoot(cfg.Root)
	client := &http.Client{Timeout: 60 * time.Second}

	endpoint, region, err := detectRegion(context.Background(), client, cfg.Endpoint, cfg.Bucket, cfg.Region)
	if err != nil {
		return nil, err
	}
	endpoint = virtualHostEndpoint(endpoint, cfg.Bucket, cfg.EnableVirtualHostStyle)

	creds := resolveCredentials(cfg)
	if creds == nil {
		provider, err := defaultCredentialsProvider(context.Background())
		if err != nil {
			return nil, accessor.NewBackendError("build",
				map[string]string{"bucket": cfg.Bucket}, accessor.KindOther, err)
		}
		creds = provider
	}

	return &Backend{
		bucket:   cfg.Bucket,
		root:     root,
		endpoint: endpoint,
		region:   region,
		cfg:      cfg,
		client:   client,
		signer:   newSigner(region, creds),
		logger:   slog.Default(),
	}, nil
}

// WithMetrics attaches a Metrics recorder, returning the same Backend
// for chaining.
func (b *Backend) WithMetrics(m *Metrics) *Backend {
	b.metrics = m
	return b
}

// WithLogger attaches a structured logger, returning the same Backend
// for chaining. Logging is advisory only: debug for routine operations,
// warn when a backend HTTP status is translated into the error taxonomy.
func (b *Backend) WithLogger(logger *slog.Logger) *Backend {
	b.logger = logger
	return b
}

// log returns b.logger, falling back to slog.Default() for backends
// constructed without going through Build (e.g. in tests).
func (b *Backend) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

func (b *Backend) Metadata() accessor.AccessorMetadata {
	return accessor.AccessorMetadata{Scheme: accessor.SchemeS3, Root: b.root, Name: b.bucket}
}

// getAbsPath maps a user-visible path to the absolute key sent to S3.
func (b *Backend) getAbsPath(p string) string {
	if p == "/" {
		return strings.TrimPrefix(b.root, "/")
	}
	return strings.TrimPrefix(b.root+p, "/")
}

// getRelPath is getAbsPath's inverse; abs not starting with root is an
// invariant violation, not a caller-reachable error.
func (b *Backend) getRelPath(abs string) string {
	full := "/" + abs
	rel, ok := strings.CutPrefix(full, b.root)
	if !ok {
		panic(fmt.Sprintf("s3: path %q escapes root %q", abs, b.root))
	}
	return rel
}

func (b *Backend) insertSSEHeaders(req *http.Request, isWrite bool) {
	if isWrite {
		if b.cfg.ServerSideEncryption != "" {
			req.Header.Set("x-amz-server-side-encryption", b.cfg.ServerSideEncryption)
		}
		if b.cfg.ServerSideEncryptionAWSKMSKeyID != "" {
			req.Header.Set("x-amz-server-side-encryption-aws-kms-key-id", b.cfg.ServerSideEncryptionAWSKMSKeyID)
		}
	}
	if b.cfg.ServerSideEncryptionCustomerAlgorithm != "" {
		req.Header.Set("x-amz-server-side-encryption-customer-algorithm", b.cfg.ServerSideEncryptionCustomerAlgorithm)
		req.Header.Set("x-amz-server-side-encryption-customer-key", b.cfg.ServerSideEncryptionCustomerKey)
		req.Header.Set("x-amz-server-side-encryption-customer-key-md5", b.cfg.ServerSideEncryptionCustomerKeyMD5)
	}
}

func (b *Backend) record(op string, start time.Time, err error) {
	b.metrics.observe(op, start, err)
}

func (b *Backend) Create(ctx context.Context, op accessor.OpCreate) error {
	start := time.Now()
	ctx, span := accessor.StartOpSpan(ctx, "create", op.Path)
	var retErr error
	defer func() { accessor.EndOpSpan(span, retErr) }()

	if op.Mode == accessor.ModeUnknown {
		panic("s3: Create called with ModeUnknown")
	}
	key := b.getAbsPath(op.Path)
	b.log().Debug("s3 create", slog.String("path", op.Path), slog.String("mode", op.Mode.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.endpoint+"/"+key, nil)
	if err != nil {
		retErr = accessor.NewObjectError("create", op.Path, accessor.KindOther, err)
		b.record("create", start, retErr)
		return retErr
	}
	req.ContentLength = 0
	b.insertSSEHeaders(req, true)
	if err := b.signer.sign(ctx, req, emptyPayloadHash); err != nil {
		retErr = accessor.NewObjectError("create", op.Path, accessor.KindOther, err)
		b.record("create", start, retErr)
		return retErr
	}

	resp, err := b.client.Do(req)
	if err != nil {
		retErr = accessor.NewObjectError("create", op.Path, accessor.KindOther, err)
		b.record("create", start, retErr)
		return retErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		retErr = accessor.NewObjectError("create", op.Path, classifyStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
		b.log().Warn("s3 create: backend status translated to error",
			slog.String("path", op.Path), slog.Int("status", resp.StatusCode), slog.Any("error", retErr))
	}
	b.record("create", start, retErr)
	return retErr
}

func (b *Backend) Read(ctx context.Context, op accessor.OpRead) (io.ReadCloser, error) {
	start := time.Now()
	ctx, span := accessor.StartOpSpan(ctx, "read", op.Path)
	var retErr error
	defer func() { accessor.EndOpSpan(span, retErr) }()

	key := b.getAbsPath(op.Path)
	b.log().Debug("s3 read", slog.String("path", op.Path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/"+key, nil)
	if err != nil {
		retErr = accessor.NewObjectError("read", op.Path, accessor.KindOther, err)
		b.record("read", start, retErr)
		return nil, retErr
	}
	if rng, ok := op.BytesRange(); ok {
		req.Header.Set("Range", rng)
	}
	b.insertSSEHeaders(req, false)
	if err := b.signer.sign(ctx, req, emptyPayloadHash); err != nil {
		retErr = accessor.NewObjectError("read", op.Path, accessor.KindOther, err)
		b.record("read", start, retErr)
		return nil, retErr
	}

	resp, err := b.client.Do(req)
	if err != nil {
		retErr = accessor.NewObjectError("read", op.Path, accessor.KindOther, err)
		b.record("read", start, retErr)
		return nil, retErr
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		retErr = accessor.NewObjectError("read", op.Path, classifyStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
		b.log().Warn("s3 read: backend status translated to error",
			slog.String("path", op.Path), slog.Int("status", resp.StatusCode), slog.Any("error", retErr))
		b.record("read", start, retErr)
		return nil, retErr
	}
	b.record("read", start, nil)
	return resp.Body, nil
}

func (b *Backend) Write(ctx context.Context, op accessor.OpWrite) (io.WriteCloser, error) {
	key := b.getAbsPath(op.Path)
	b.log().Debug("s3 write", slog.String("path", op.Path), slog.Uint64("size", op.Size))
	ctx, span := accessor.StartOpSpan(ctx, "write", op.Path)

	w, err := b.newWriter(ctx, key, op.Size)
	if err != nil {
		accessor.EndOpSpan(span, err)
		return nil, err
	}
	return &tracedWriter{inner: w, backend: b, path: op.Path, start: time.Now(), span: span}, nil
}

// tracedWriter wraps the raw HTTP body writer so the write span/metric
// is recorded at Close, the operation's true commit point.
type tracedWriter struct {
	inner   io.WriteCloser
	backend *Backend
	path    string
	start   time.Time
	span    trace.Span
}

func (w *tracedWriter) Write(p []byte) (int, error) { return w.inner.Write(p) }

func (w *tracedWriter) Close() error {
	err := w.inner.Close()
	if err != nil {
		w.backend.log().Warn("s3 write: backend status translated to error",
			slog.String("path", w.path), slog.Any("error", err))
	}
	accessor.EndOpSpan(w.span, err)
	w.backend.record("write", w.start, err)
	return err
}

func (b *Backend) Stat(ctx context.Context, op accessor.OpStat) (accessor.ObjectMetadata, error) {
	start := time.Now()
	ctx, span := accessor.StartOpSpan(ctx, "stat", op.Path)
	var retErr error
	defer func() { accessor.EndOpSpan(span, retErr) }()

	key := b.getAbsPath(op.Path)
	b.log().Debug("s3 stat", slog.String("path", op.Path))
	if b.getRelPath(key) == "" {
		b.record("stat", start, nil)
		return accessor.NewDirMetadata(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.endpoint+"/"+key, nil)
	if err != nil {
		retErr = accessor.NewObjectError("stat", op.Path, accessor.KindOther, err)
		b.record("stat", start, retErr)
		return accessor.ObjectMetadata{}, retErr
	}
	b.insertSSEHeaders(req, false)
	if err := b.signer.sign(ctx, req, emptyPayloadHash); err != nil {
		retErr = accessor.NewObjectError("stat", op.Path, accessor.KindOther, err)
		b.record("stat", start, retErr)
		return accessor.ObjectMetadata{}, retErr
	}

	resp, err := b.client.Do(req)
	if err != nil {
		retErr = accessor.NewObjectError("stat", op.Path, accessor.KindOther, err)
		b.record("stat", start, retErr)
		return accessor.ObjectMetadata{}, retErr
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && strings.HasSuffix(op.Path, "/") {
		b.record("stat", start, nil)
		return accessor.NewDirMetadata(), nil
	}
	if resp.StatusCode != http.StatusOK {
		retErr = accessor.NewObjectError("stat", op.Path, classifyStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
		b.log().Warn("s3 stat: backend status translated to error",
			slog.String("path", op.Path), slog.Int("status", resp.StatusCode), slog.Any("error", retErr))
		b.record("stat", start, retErr)
		return accessor.ObjectMetadata{}, retErr
	}

	meta := accessor.ObjectMetadata{Mode: accessor.ModeFile}
	if strings.HasSuffix(op.Path, "/") {
		meta.Mode = accessor.ModeDir
	}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			meta.ContentLength = n
			meta.ContentLengthSet = true
		}
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		meta.ETag = etag
		meta.ContentMD5 = strings.Trim(etag, `"`)
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(http.TimeFormat, lm); err == nil {
			meta.LastModified = t
			meta.LastModifiedSet = true
		}
	}
	b.record("stat", start, nil)
	return meta, nil
}

func (b *Backend) Delete(ctx context.Context, op accessor.OpDelete) error {
	start := time.Now()
	ctx, span := accessor.StartOpSpan(ctx, "delete", op.Path)
	var retErr error
	defer func() { accessor.EndOpSpan(span, retErr) }()

	key := b.getAbsPath(op.Path)
	b.log().Debug("s3 delete", slog.String("path", op.Path))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.endpoint+"/"+key, nil)
	if err != nil {
		retErr = accessor.NewObjectError("delete", op.Path, accessor.KindOther, err)
		b.record("delete", start, retErr)
		return retErr
	}
	if err := b.signer.sign(ctx, req, emptyPayloadHash); err != nil {
		retErr = accessor.NewObjectError("delete", op.Path, accessor.KindOther, err)
		b.record("delete", start, retErr)
		return retErr
	}

	resp, err := b.client.Do(req)
	if err != nil {
		retErr = accessor.NewObjectError("delete", op.Path, accessor.KindOther, err)
		b.record("delete", start, retErr)
		return retErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		retErr = accessor.NewObjectError("delete", op.Path, classifyStatus(resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
		b.log().Warn("s3 delete: backend status translated to error",
			slog.String("path", op.Path), slog.Int("status", resp.StatusCode), slog.Any("error", retErr))
	}
	b.record("delete", start, retErr)
	return retErr
}

func (b *Backend) List(ctx context.Context, op accessor.OpList) (accessor.DirStream, error) {
	prefix := b.getAbsPath(op.Path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	b.log().Debug("s3 list", slog.String("path", op.Path), slog.String("prefix", prefix))
	return newDirStream(b, prefix), nil
}

var _ accessor.Accessor = (*Backend)(nil)
