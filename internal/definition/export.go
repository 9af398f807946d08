package definition

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MetricsObject = "metrics.jsonl"
	SLAsObject    = "slas.jsonl"
)

// Exporter uploads a flattened Set to S3 as JSON lines objects.
type Exporter struct {
	client S3API
	bucket string
	prefix string
}

func NewExporter(client S3API, bucket, prefix string) *Exporter {
	return &Exporter{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Export writes <prefix>/metrics.jsonl and <prefix>/slas.jsonl.
func (e *Exporter) Export(ctx context.Context, set *Set) error {
	ctx, span := tracer.Start(ctx, "definition.export")
	defer span.End()
	span.SetAttributes(
		attribute.String("s3.bucket", e.bucket),
		attribute.Int("definition.metrics", len(set.Metrics)),
		attribute.Int("definition.slas", len(set.SLAs)),
	)

	var metrics bytes.Buffer
	if err := set.EncodeMetrics(&metrics); err != nil {
		return err
	}
	if err := e.put(ctx, MetricsObject, metrics.Bytes()); err != nil {
		return err
	}

	var slas bytes.Buffer
	if err := set.EncodeSLAs(&slas); err != nil {
		return err
	}
	return e.put(ctx, SLAsObject, slas.Bytes())
}

func (e *Exporter) put(ctx context.Context, name string, body []byte) error {
	key := path.Join(e.prefix, name)

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("cannot put s3://%s/%s: %w", e.bucket, key, err)
	}
	return nil
}
