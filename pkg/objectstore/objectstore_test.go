package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperKey(t *testing.T) {
	id := uuid.MustParse("6f1c3c1e-2d4b-4b7a-9a55-1f1d3c7b9e01")
	at := time.Date(2024, time.March, 9, 23, 0, 0, 0, time.FixedZone("LKT", 5*3600+1800))

	assert.Equal(t, "papers/2024/03/6f1c3c1e-2d4b-4b7a-9a55-1f1d3c7b9e01.pdf", PaperKey(at, id))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example/papers/a%20b.pdf", publicURL("https://cdn.example/", "papers/a b.pdf"))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("http://localhost:8080/files")

	require.NoError(t, m.Put(ctx, "papers/x.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))
	assert.Equal(t, 1, m.Len())

	u, err := m.URL(ctx, "papers/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/papers/x.pdf", u)

	rc, err := m.Open("papers/x.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, m.Delete(ctx, "papers/x.pdf"))
	_, err = m.URL(ctx, "papers/x.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeS3 struct {
	put       *s3.PutObjectInput
	deleteErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, f.deleteErr
}

func TestS3Store_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{}
	store := &S3Store{client: fake, bucket: "papers", publicBaseURL: "https://cdn.example"}

	require.NoError(t, store.Put(ctx, "papers/2024/01/a.pdf", strings.NewReader("%PDF-"), 5, "application/pdf"))
	require.NotNil(t, fake.put)
	assert.Equal(t, "papers", aws.ToString(fake.put.Bucket))
	assert.Equal(t, int64(5), aws.ToInt64(fake.put.ContentLength))

	fake.deleteErr = &types.NoSuchKey{}
	assert.NoError(t, store.Delete(ctx, "gone"))

	fake.deleteErr = errors.New("boom")
	assert.Error(t, store.Delete(ctx, "x"))

	u, err := store.URL(ctx, "papers/2024/01/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/papers/2024/01/a.pdf", u)
}

func TestS3Store_PresignFallback(t *testing.T) {
	store := &S3Store{
		client: &fakeS3{},
		bucket: "papers",
		presign: func(_ context.Context, bucket, key string) (string, error) {
			return "https://signed/" + bucket + "/" + key, nil
		},
	}
	u, err := store.URL(context.Background(), "k.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/papers/k.pdf", u)
}

func TestNewS3Store_Options(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
	})

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		require.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	var applied s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&applied)
		}
		return origNew(cfg, optFns...)
	}

	store, err := NewS3Store(context.Background(), S3Options{
		Endpoint: "http://127.0.0.1:9000", Region: "us-east-1", Bucket: "papers",
		AccessKey: "minioadmin", SecretKey: "minioadmin", PathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, "us-east-1", region)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(applied.BaseEndpoint))
	assert.True(t, applied.UsePathStyle)

	_, err = NewS3Store(context.Background(), S3Options{})
	assert.Error(t, err)
}

var _ Store = (*S3Store)(nil)
var _ Store = (*Memory)(nil)

func TestMemory_ServeHTTP(t *testing.T) {
	m := NewMemory("/files")
	require.NoError(t, m.Put(context.Background(), "papers/2024/01/a.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	h := http.StripPrefix("/files", m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/papers/2024/01/a.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/papers/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
