package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000/",
		S3Bucket:       "avatars",
	}
}

func stubClient(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000/", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}
}

func TestNewS3ImageStore_LoadConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3ImageStore(context.Background(), testConfig())
	require.Error(t, err)
}

func TestUpload_PutsObjectAndReturnsURL(t *testing.T) {
	stubClient(t)

	origPut := putObject
	t.Cleanup(func() { putObject = origPut })

	var got *s3.PutObjectInput
	var gotBody string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		got = in
		b, _ := io.ReadAll(in.Body)
		gotBody = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	store, err := NewS3ImageStore(context.Background(), testConfig())
	require.NoError(t, err)

	u, err := store.Upload(context.Background(), "users/u1/img", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000/avatars/users/u1/img", u)
	assert.Equal(t, "avatars", aws.ToString(got.Bucket))
	assert.Equal(t, "users/u1/img", aws.ToString(got.Key))
	assert.Equal(t, "image/png", aws.ToString(got.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(got.ContentLength))
	assert.Equal(t, "png", gotBody)
}

func TestUpload_PutError(t *testing.T) {
	stubClient(t)

	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}

	store, err := NewS3ImageStore(context.Background(), testConfig())
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "k", strings.NewReader(""), 0, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestImageKey(t *testing.T) {
	a := ImageKey("u1")
	b := ImageKey("u1")

	assert.True(t, strings.HasPrefix(a, "users/u1/"))
	assert.NotEqual(t, a, b)
}
