package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsv4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// defaultCredentialsProvider resolves the standard AWS credential chain
// (environment, shared config, IMDS, ...) via aws-sdk-go-v2/config,
// without pulling in its HTTP client machinery beyond credential
// resolution.
func defaultCredentialsProvider(ctx context.Context) (aws.CredentialsProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Credentials, nil
}

// unsignedPayload is the SigV4 sentinel used when the request body is
// streamed and its hash cannot be computed before signing (our Write
// path, whose body is fed from a channel as the request is sent).
const unsignedPayload = "UNSIGNED-PAYLOAD"

// emptyPayloadHash is the SHA-256 hash of an empty body, used for every
// request that carries no body (GET/HEAD/DELETE, and our zero-length
// Create PUT).
var emptyPayloadHash = sha256Hex(nil)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// signer wraps the low-level SigV4 signer together with the resolved
// region and credentials provider, so backend code can sign a request
// without re-deriving either on every call.
type signer struct {
	region string
	creds  aws.CredentialsProvider
	inner  *awsv4.Signer
}

func newSigner(region string, creds aws.CredentialsProvider) *signer {
	return &signer{region: region, creds: creds, inner: awsv4.NewSigner()}
}

func resolveCredentials(cfg Config) aws.CredentialsProvider {
	if cfg.AccessKeyID != "" {
		return credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	}
	if cfg.DisableCredentialLoader {
		// Anonymous: sign leaves requests made with this provider
		// unsigned; S3-compatible services configured for public access
		// accept them that way.
		return aws.AnonymousCredentials{}
	}
	return nil // resolved lazily via the default chain in backend.go
}

// sign attaches SigV4 authentication headers to req for the S3 service.
// With anonymous credentials the request is left unsigned.
func (s *signer) sign(ctx context.Context, req *http.Request, payloadHash string) error {
	if _, ok := s.creds.(aws.AnonymousCredentials); ok {
		return nil
	}
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return err
	}
	return s.inner.SignHTTP(ctx, creds, req, payloadHash, "s3", s.region, time.Now())
}
