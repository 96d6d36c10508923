package s3

import (
	"crypto/md5"
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// ErrBucketRequired is returned by Build when Config.Bucket is empty.
var ErrBucketRequired = errors.New("s3: bucket is required")

// Config holds the configuration for an S3 backend instance. It mirrors
// the OpenDAL-style builder: most fields are plain strings, and a
// handful of WithSSE* helpers compute the derived
// fields (MD5/base64 of a customer key) for the caller.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Region is the AWS region. If empty, it is auto-detected against
	// Endpoint (or the default AWS endpoint) during Build.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible services
	// (MinIO, R2, Wasabi, ...). Leave empty for AWS S3.
	Endpoint string

	// Root is the path prefix applied to every key. Normalized to
	// begin and end with "/"; defaults to "/".
	Root string

	// AccessKeyID / SecretAccessKey / SessionToken are explicit static
	// credentials. If AccessKeyID is empty and DisableCredentialLoader
	// is false, the aws-sdk-go-v2 default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// DisableCredentialLoader, when true, skips the default AWS
	// credential chain (environment, shared config, IMDS) entirely;
	// only the explicit static credentials above (if any) are used,
	// and requests are otherwise sent unsigned.
	DisableCredentialLoader bool

	// EnableVirtualHostStyle selects bucket.host/key addressing instead
	// of host/bucket/key.
	EnableVirtualHostStyle bool

	// ServerSideEncryption is one of "AES256" or "aws:kms", applied on
	// writes only.
	ServerSideEncryption string
	// ServerSideEncryptionAWSKMSKeyID names the customer-managed KMS
	// key; applies on writes only.
	ServerSideEncryptionAWSKMSKeyID string

	// ServerSideEncryptionCustomerAlgorithm / Key / KeyMD5 form the
	// SSE-C triplet. They apply to reads, writes, and stats, since S3
	// needs the key to decrypt an existing object as well as to
	// encrypt a new one. Key and KeyMD5 are base64-encoded, matching
	// the header value format S3 expects.
	ServerSideEncryptionCustomerAlgorithm string
	ServerSideEncryptionCustomerKey       string
	ServerSideEncryptionCustomerKeyMD5    string
}

// DefaultConfig returns a zero Config; S3 has no meaningful non-zero
// defaults beyond what Build derives (region detection, endpoint
// templating).
func DefaultConfig() Config {
	return Config{}
}

// ConfigFromMap builds a Config from string configuration, the shape the
// package Registry passes through Open. Supported keys: bucket, region,
// endpoint, root, access_key_id, secret_access_key, session_token,
// disable_credential_loader, enable_virtual_host_style.
func ConfigFromMap(m map[string]string) Config {
	c := DefaultConfig()
	if v, ok := m["bucket"]; ok {
		c.Bucket = v
	}
	if v, ok := m["region"]; ok {
		c.Region = v
	}
	if v, ok := m["endpoint"]; ok {
		c.Endpoint = v
	}
	if v, ok := m["root"]; ok {
		c.Root = v
	}
	if v, ok := m["access_key_id"]; ok {
		c.AccessKeyID = v
	}
	if v, ok := m["secret_access_key"]; ok {
		c.SecretAccessKey = v
	}
	if v, ok := m["session_token"]; ok {
		c.SessionToken = v
	}
	if v, ok := m["disable_credential_loader"]; ok {
		c.DisableCredentialLoader = truthy(v)
	}
	if v, ok := m["enable_virtual_host_style"]; ok {
		c.EnableVirtualHostStyle = truthy(v)
	}
	return c
}

// ConfigFromEnv builds a Config from the conventional AWS environment
// variables plus this package's S3_BACKEND_* overrides.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	if v := os.Getenv("S3_BACKEND_BUCKET"); v != "" {
		c.Bucket = v
	} else if v := os.Getenv("AWS_S3_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	} else if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("S3_BACKEND_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	c.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	c.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	c.SessionToken = os.Getenv("AWS_SESSION_TOKEN")
	return c
}

func truthy(v string) bool { return v == "true" || v == "1" }

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}

// WithSSES3Key selects SSE-S3 (AES256, S3-managed key) for writes.
func (c Config) WithSSES3Key() Config {
	c.ServerSideEncryption = "AES256"
	c.ServerSideEncryptionAWSKMSKeyID = ""
	return c
}

// WithSSEAWSManagedKMSKey selects SSE-KMS using the AWS-managed default
// key for writes.
func (c Config) WithSSEAWSManagedKMSKey() Config {
	c.ServerSideEncryption = "aws:kms"
	c.ServerSideEncryptionAWSKMSKeyID = ""
	return c
}

// WithSSECustomerManagedKMSKey selects SSE-KMS using a specific
// customer-managed key ID for writes.
func (c Config) WithSSECustomerManagedKMSKey(keyID string) Config {
	c.ServerSideEncryption = "aws:kms"
	c.ServerSideEncryptionAWSKMSKeyID = keyID
	return c
}

// WithSSECustomerKey selects SSE-C with the given algorithm (typically
// "AES256") and raw 256-bit key; it computes the base64 key and the
// base64 MD5 digest S3 requires alongside it.
func (c Config) WithSSECustomerKey(algorithm string, rawKey []byte) Config {
	sum := md5.Sum(rawKey)
	c.ServerSideEncryptionCustomerAlgorithm = algorithm
	c.ServerSideEncryptionCustomerKey = base64.StdEncoding.EncodeToString(rawKey)
	c.ServerSideEncryptionCustomerKeyMD5 = base64.StdEncoding.EncodeToString(sum[:])
	return c
}

func normalizeRoot(root string) string {
	if root == "" || root == "/" {
		return "/"
	}
	parts := strings.Split(root, "/")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/") + "/"
}
