package definition

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
)

// archiveRoot is the directory inside a definitions archive that holds account trees.
const archiveRoot = "definitions"

// S3API defines the S3 operations required to fetch archives and store exports.
type S3API interface {
	GetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)

	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewArchive returns the archive stored at bucket/key when bucket is set, and the
// local zip file at path otherwise.
func NewArchive(client S3API, bucket, key, path string) Archive {
	if bucket != "" {
		return NewS3Archive(client, bucket, key)
	}
	return ZipFile(path)
}

// ZipFile is a definitions archive on the local filesystem.
type ZipFile string

func (z ZipFile) Open(_ context.Context) (fs.FS, error) {
	data, err := os.ReadFile(string(z))
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", string(z), err)
	}
	return openZip(data)
}

// S3Archive is a definitions archive stored as an S3 object.
type S3Archive struct {
	client S3API
	bucket string
	key    string
}

func NewS3Archive(client S3API, bucket, key string) *S3Archive {
	return &S3Archive{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

func (a *S3Archive) Open(ctx context.Context) (fs.FS, error) {
	ctx, span := tracer.Start(ctx, "definition.archive.open")
	defer span.End()
	span.SetAttributes(
		attribute.String("s3.bucket", a.bucket),
		attribute.String("s3.key", a.key),
	)

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot get s3://%s/%s: %w", a.bucket, a.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read s3://%s/%s: %w", a.bucket, a.key, err)
	}

	return openZip(data)
}

func openZip(data []byte) (fs.FS, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot open definitions archive: %w", err)
	}

	sub, err := fs.Sub(zr, archiveRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q in definitions archive: %w", archiveRoot, err)
	}
	return sub, nil
}
