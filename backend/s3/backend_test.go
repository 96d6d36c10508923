package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/coreobj/accessor"
)

// Integration tests that require a real S3-compatible service.
// Set these environment variables to run them:
//   - S3_BACKEND_TEST_BUCKET: bucket name
//   - S3_BACKEND_TEST_REGION: region (optional)
//   - S3_BACKEND_TEST_ENDPOINT: endpoint (optional, for MinIO/R2)
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY

func getTestBackend(t *testing.T) *Backend {
	bucket := os.Getenv("S3_BACKEND_TEST_BUCKET")
	if bucket == "" {
		t.Skip("S3_BACKEND_TEST_BUCKET not set, skipping integration test")
	}

	cfg := Config{
		Bucket:   bucket,
		Region:   os.Getenv("S3_BACKEND_TEST_REGION"),
		Endpoint: os.Getenv("S3_BACKEND_TEST_ENDPOINT"),
		Root:     "/accessor-test-" + time.Now().Format("20060102-150405") + "/",
	}

	backend, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return backend
}

func TestIntegrationRoundTrip(t *testing.T) {
	backend := getTestBackend(t)
	ctx := context.Background()

	data := []byte("hello from the integration suite")
	w, err := backend.Write(ctx, accessor.OpWrite{Path: "greeting.txt", Size: uint64(len(data))})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("writer.Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}

	r, err := backend.Read(ctx, accessor.OpRead{Path: "greeting.txt"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	if err := backend.Delete(ctx, accessor.OpDelete{Path: "greeting.txt"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != ErrBucketRequired {
		t.Errorf("Validate() on empty config = %v, want ErrBucketRequired", err)
	}
	if err := (Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("Validate() with bucket = %v, want nil", err)
	}
}

func TestConfigFromMap(t *testing.T) {
	cfg := ConfigFromMap(map[string]string{
		"bucket":                    "my-bucket",
		"region":                    "us-west-2",
		"enable_virtual_host_style": "true",
	})
	if cfg.Bucket != "my-bucket" || cfg.Region != "us-west-2" || !cfg.EnableVirtualHostStyle {
		t.Errorf("ConfigFromMap = %+v", cfg)
	}
}

// TestDetectRegion exercises three inputs the region-detection bootstrap
// must resolve to the same regional endpoint and region: an unset or
// global endpoint with an explicit region (templated), and an
// already-regional endpoint with no region (falling back to an unsigned
// HEAD against a stand-in server).
func TestDetectRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-amz-bucket-region", "us-east-2")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Register a fake "global" endpoint pointing at our test server, and
	// temporarily make it the default, so each case below resolves
	// without a real network call: endpoint unset and full URL with an
	// explicit region, and already-regional URL with none.
	regional := server.URL + "/us-east-2"
	endpointTemplates[server.URL] = server.URL + "/{region}"
	defer delete(endpointTemplates, server.URL)

	origDefault := defaultEndpoint
	defaultEndpoint = server.URL
	defer func() { defaultEndpoint = origDefault }()

	cases := []struct {
		name     string
		endpoint string
		region   string
	}{
		{"endpoint unset, region given", "", "us-east-2"},
		{"full URL, region given", server.URL, "us-east-2"},
		{"already-regional URL, region unset (falls to HEAD)", regional, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			endpoint, region, err := detectRegion(context.Background(), server.Client(), tc.endpoint, "bucket", tc.region)
			if err != nil {
				t.Fatalf("detectRegion: %v", err)
			}
			if region != "us-east-2" {
				t.Errorf("region = %q, want us-east-2", region)
			}
			if endpoint != regional {
				t.Errorf("endpoint = %q, want %q", endpoint, regional)
			}
		})
	}
}

func TestDetectRegionUnsignedHeadReadsRegionHeader(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Authorization") != "" {
			t.Errorf("region-detection HEAD must be unsigned, got Authorization header")
		}
		w.Header().Set("x-amz-bucket-region", "eu-west-1")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	endpoint, region, err := detectRegion(context.Background(), server.Client(), server.URL, "my-bucket", "")
	if err != nil {
		t.Fatalf("detectRegion: %v", err)
	}
	if region != "eu-west-1" {
		t.Errorf("region = %q, want eu-west-1", region)
	}
	if endpoint != server.URL {
		t.Errorf("endpoint = %q, want %q", endpoint, server.URL)
	}
	if gotPath != "/my-bucket" {
		t.Errorf("HEAD path = %q, want /my-bucket", gotPath)
	}
}

func TestSSEHeaderPolicy(t *testing.T) {
	cfg := Config{Bucket: "b"}.
		WithSSECustomerKey("AES256", []byte("0123456789abcdef0123456789abcdef"))

	b := &Backend{cfg: cfg, endpoint: "https://example.invalid"}

	readReq, _ := http.NewRequest(http.MethodGet, "https://example.invalid/key", nil)
	b.insertSSEHeaders(readReq, false)
	if readReq.Header.Get("x-amz-server-side-encryption") != "" {
		t.Error("SSE-C read request should not carry x-amz-server-side-encryption")
	}
	if readReq.Header.Get("x-amz-server-side-encryption-customer-algorithm") != "AES256" {
		t.Error("SSE-C read request missing customer-algorithm header")
	}

	cfg = cfg.WithSSES3Key()
	b.cfg = cfg
	writeReq, _ := http.NewRequest(http.MethodPut, "https://example.invalid/key", nil)
	b.insertSSEHeaders(writeReq, true)
	if writeReq.Header.Get("x-amz-server-side-encryption") != "AES256" {
		t.Error("SSE write request missing x-amz-server-side-encryption")
	}
	if writeReq.Header.Get("x-amz-server-side-encryption-customer-algorithm") != "AES256" {
		t.Error("SSE-C headers should still be present on writes when configured")
	}
}

func TestGetAbsRelPath(t *testing.T) {
	b := &Backend{root: "/prefix/"}
	if got := b.getAbsPath("/"); got != "prefix/" {
		t.Errorf("getAbsPath(/) = %q, want prefix/", got)
	}
	// Non-root paths never carry a leading slash themselves (only the
	// root sentinel "/" does); b.root already supplies the separator.
	if got := b.getAbsPath("a/b"); got != "prefix/a/b" {
		t.Errorf("getAbsPath(a/b) = %q, want prefix/a/b", got)
	}
	// getRelPath only ever receives getAbsPath's own output (e.g. the
	// trailing-slash "prefix/" above), never a value with the slash
	// stripped; feeding it anything else is an invariant violation.
	if got := b.getRelPath("prefix/"); got != "" {
		t.Errorf("getRelPath(prefix/) = %q, want \"\"", got)
	}
	if got := b.getRelPath("prefix/a/b"); got != "a/b" {
		t.Errorf("getRelPath(prefix/a/b) = %q, want a/b", got)
	}
}
