package uploader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.ERROR)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "export_*.raw")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

type fakeS3 struct {
	putBucket string
	putKey    string
	body      []byte
	err       error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.putBucket = *params.Bucket
	f.putKey = *params.Key
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3BackendUpload(t *testing.T) {
	local := writeTempFile(t, "42   Ann       \n")
	fake := &fakeS3{}
	b := &S3Backend{client: fake, log: testLogger()}

	res, err := b.Upload(context.Background(), local, "exports", "aspect_test.raw")
	require.NoError(t, err)

	assert.Equal(t, "exports/aspect_test.raw", res.Path)
	assert.Equal(t, "exports", fake.putBucket)
	assert.Equal(t, "aspect_test.raw", fake.putKey)
	assert.Equal(t, "42   Ann       \n", string(fake.body))
}

func TestS3BackendMissingLocalFile(t *testing.T) {
	b := &S3Backend{client: &fakeS3{}, log: testLogger()}
	_, err := b.Upload(context.Background(), "/nonexistent/file.raw", "exports", "f.raw")
	assert.Error(t, err)
}

func TestNewS3BackendRequiresCredentials(t *testing.T) {
	_, err := NewS3Backend(context.Background(), S3Options{}, testLogger())
	assert.Error(t, err)
}

func TestNetworkBackendUpload(t *testing.T) {
	local := writeTempFile(t, "line one\nline two\n")
	target := t.TempDir()
	b := NewNetworkBackend(testLogger())

	res, err := b.Upload(context.Background(), local, target, "out.raw")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(target, "out.raw"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))
}

func TestNetworkBackendOverwritesExisting(t *testing.T) {
	local := writeTempFile(t, "new content")
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "out.raw"), []byte("old"), 0o644))

	b := NewNetworkBackend(testLogger())
	res, err := b.Upload(context.Background(), local, target, "out.raw")
	require.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestNetworkBackendMissingTargetDir(t *testing.T) {
	local := writeTempFile(t, "content")
	b := NewNetworkBackend(testLogger())

	_, err := b.Upload(context.Background(), local, "/nonexistent/share", "out.raw")
	assert.Error(t, err)
}

func TestNetworkBackendCheckAccess(t *testing.T) {
	b := NewNetworkBackend(testLogger())

	assert.NoError(t, b.CheckAccess(t.TempDir()))
	assert.Error(t, b.CheckAccess("/nonexistent/share"))
}

func TestSelector(t *testing.T) {
	network := NewNetworkBackend(testLogger())
	objectStore := &S3Backend{client: &fakeS3{}, log: testLogger()}
	sel := NewSelector(objectStore, network)

	b, err := sel.For(domain.DestObjectStore)
	require.NoError(t, err)
	assert.Same(t, Backend(objectStore), b)

	b, err = sel.For(domain.DestNetworkShare)
	require.NoError(t, err)
	assert.Same(t, Backend(network), b)

	// Object storage is the default when the kind is empty.
	b, err = sel.For("")
	require.NoError(t, err)
	assert.Same(t, Backend(objectStore), b)

	_, err = sel.For("FTP")
	assert.Error(t, err)
}
