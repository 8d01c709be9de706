package drivers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "formflow-test"

// fakeS3 answers path-style object requests for a single stored key.
func fakeS3(t *testing.T, storedKey string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
		switch r.Method {
		case http.MethodPut:
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if key != storedKey {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.WriteString(w, "png-bytes")
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestS3Driver(endpoint, publicURL string) *S3Driver {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})
	return NewS3Driver(client, testBucket, publicURL)
}

func TestS3Driver_SaveGetDelete(t *testing.T) {
	key := "signature/0b1c2d3e-4f5a-4b7c-8d9e-0f1a2b3c4d5e.png"
	srv := fakeS3(t, key)
	driver := newTestS3Driver(srv.URL, "")
	ctx := context.Background()

	require.NoError(t, driver.Save(ctx, key, bytes.NewReader([]byte("png-bytes")), "image/png"))

	body, contentType, err := driver.Get(ctx, key)
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
	assert.Equal(t, "image/png", contentType)

	_, _, err = driver.Get(ctx, "signature/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, driver.Delete(ctx, key))
}

func TestS3Driver_GenerateURL(t *testing.T) {
	key := "attachment/0b1c2d3e-4f5a-4b7c-8d9e-0f1a2b3c4d5e.pdf"
	ctx := context.Background()

	public := newTestS3Driver("http://localhost:9000", "https://cdn.example.com")
	url, err := public.GenerateURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+key, url)

	presigned := newTestS3Driver("http://localhost:9000", "")
	url, err = presigned.GenerateURL(ctx, key, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/"+testBucket+"/"+key)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
