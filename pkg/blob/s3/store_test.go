//go:build integration

package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// endpoint is the S3 API of the Localstack instance used by every test.
// LOCALSTACK_ENDPOINT reuses a running instance instead of starting one.
var endpoint string

func TestMain(m *testing.M) {
	os.Exit(runWithLocalstack(m))
}

func runWithLocalstack(m *testing.M) int {
	if endpoint = os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return m.Run()
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "localstack/localstack:3.0",
			ExposedPorts: []string{"4566/tcp"},
			Env:          map[string]string{"SERVICES": "s3", "EAGER_SERVICE_LOADING": "1"},
			WaitingFor: wait.ForHTTP("/_localstack/health").
				WithPort("4566/tcp").
				WithStartupTimeout(90 * time.Second),
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "localstack: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	endpoint, err = container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		fmt.Fprintf(os.Stderr, "localstack endpoint: %v\n", err)
		return 1
	}
	return m.Run()
}

// bucketStore builds a store through NewFromConfig against a fresh bucket.
func bucketStore(t *testing.T, prefix string) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := NewFromConfig(ctx, Config{
		Bucket:          strings.ToLower(fmt.Sprintf("drive-%d", time.Now().UnixNano())),
		Region:          "us-east-1",
		Endpoint:        endpoint,
		KeyPrefix:       prefix,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
	})
	require.NoError(t, err)

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fetch(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestUploadServesContentAtURL(t *testing.T) {
	s := bucketStore(t, "files/")
	payload := strings.Repeat("drive ", 20000)

	var last int
	url, err := s.Upload(context.Background(), "u1/notes.txt", strings.NewReader(payload), int64(len(payload)), func(p int) {
		assert.GreaterOrEqual(t, p, last)
		last = p
	})
	require.NoError(t, err)
	assert.Equal(t, 100, last)
	assert.Contains(t, url, "/files/u1/notes.txt")

	status, body := fetch(t, url)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, payload, body)
}

func TestDeleteRemovesObjectAndIsIdempotent(t *testing.T) {
	s := bucketStore(t, "")
	ctx := context.Background()

	url, err := s.Upload(ctx, "gone.bin", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gone.bin"))
	status, _ := fetch(t, url)
	assert.Equal(t, http.StatusNotFound, status)

	assert.NoError(t, s.Delete(ctx, "gone.bin"))
}

func TestHealthcheck(t *testing.T) {
	s := bucketStore(t, "")
	require.NoError(t, s.Healthcheck(context.Background()))

	orphan := New(s.client, Config{Bucket: "no-such-bucket"})
	assert.Error(t, orphan.Healthcheck(context.Background()))
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	s := bucketStore(t, "")
	require.NoError(t, s.Close())

	_, err := s.Upload(context.Background(), "k", strings.NewReader("x"), 1, nil)
	assert.Error(t, err)
	assert.Error(t, s.Delete(context.Background(), "k"))
}
