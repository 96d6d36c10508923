package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/coreobj/accessor"
)

func TestDirStreamPagination(t *testing.T) {
	pages := []string{
		`<ListBucketResult>
			<IsTruncated>true</IsTruncated>
			<NextContinuationToken>tok-1</NextContinuationToken>
			<Contents><Key>a/one</Key></Contents>
			<CommonPrefixes><Prefix>a/sub/</Prefix></CommonPrefixes>
		</ListBucketResult>`,
		`<ListBucketResult>
			<IsTruncated>false</IsTruncated>
			<Contents><Key>a/two</Key></Contents>
		</ListBucketResult>`,
	}

	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call == 0 {
			if tok := r.URL.Query().Get("continuation-token"); tok != "" {
				t.Errorf("first page request should not carry a continuation token, got %q", tok)
			}
		} else {
			if tok := r.URL.Query().Get("continuation-token"); tok != "tok-1" {
				t.Errorf("second page request continuation-token = %q, want tok-1", tok)
			}
		}
		fmt.Fprint(w, pages[call])
		call++
	}))
	defer server.Close()

	b := &Backend{
		endpoint: server.URL,
		client:   server.Client(),
		signer:   newSigner("us-east-1", aws.AnonymousCredentials{}),
	}

	stream, err := b.List(context.Background(), accessor.OpList{Path: "/a/"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var got []string
	for {
		e, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, e.Path())
	}

	want := []string{"a/one", "a/sub/", "a/two"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
	if call != 2 {
		t.Errorf("server received %d requests, want 2", call)
	}
}
