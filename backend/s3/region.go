package s3

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreobj/accessor"
)

// defaultEndpoint is AWS's global endpoint, used when Config.Endpoint is
// empty. Declared as a var (not a const) so tests can point it at a
// stand-in server instead of real AWS.
var defaultEndpoint = "https://s3.amazonaws.com"

// endpointTemplates maps a global endpoint to its regional template.
// Only AWS's own global endpoint needs this; S3-compatible services are
// already region-specific (or region-agnostic) by construction.
var endpointTemplates = map[string]string{
	"https://s3.amazonaws.com": "https://s3.{region}.amazonaws.com",
}

// detectRegion resolves the (endpoint, region) pair to actually talk to,
// following the bootstrap algorithm: if a region is already known,
// template the endpoint and return without any network call; otherwise
// issue an unsigned HEAD against the bucket and read the region back
// from the response.
func detectRegion(ctx context.Context, client *http.Client, endpoint, bucket, region string) (string, string, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	} else if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.Replace(endpoint, "//"+bucket+".", "//", 1)

	if region != "" {
		if tmpl, ok := endpointTemplates[endpoint]; ok {
			endpoint = strings.Replace(tmpl, "{region}", region, 1)
		}
		return endpoint, region, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint+"/"+bucket, nil)
	if err != nil {
		return "", "", accessor.NewBackendError("detect_region",
			map[string]string{"bucket": bucket, "endpoint": endpoint}, accessor.KindOther, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", accessor.NewBackendError("detect_region",
			map[string]string{"bucket": bucket, "endpoint": endpoint}, accessor.KindOther, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusForbidden:
		region := resp.Header.Get("x-amz-bucket-region")
		if region == "" {
			region = "us-east-1"
		}
		return endpoint, region, nil
	case http.StatusMovedPermanently:
		region := resp.Header.Get("x-amz-bucket-region")
		if region == "" {
			return "", "", accessor.NewBackendError("detect_region",
				map[string]string{"bucket": bucket, "endpoint": endpoint}, accessor.KindOther,
				fmt.Errorf("redirected without x-amz-bucket-region header"))
		}
		tmpl, ok := endpointTemplates[endpoint]
		if !ok {
			return "", "", accessor.NewBackendError("detect_region",
				map[string]string{"bucket": bucket, "endpoint": endpoint, "region": region}, accessor.KindOther,
				fmt.Errorf("no endpoint template to redirect into region %s", region))
		}
		return strings.Replace(tmpl, "{region}", region, 1), region, nil
	default:
		return "", "", accessor.NewBackendError("detect_region",
			map[string]string{"bucket": bucket, "endpoint": endpoint}, accessor.KindOther,
			fmt.Errorf("unexpected status %d detecting region", resp.StatusCode))
	}
}

// virtualHostEndpoint rewrites endpoint to embed the bucket, either as a
// subdomain (virtual-host-style) or as a path segment (path-style).
func virtualHostEndpoint(endpoint, bucket string, virtualHost bool) string {
	if virtualHost {
		return strings.Replace(endpoint, "//", "//"+bucket+".", 1)
	}
	return endpoint + "/" + bucket
}
