// Package stream produces metric and SLA records correlated with the declared model
// and emits them to Kinesis data streams.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream")

const (
	partitionKey = "default"

	// putRecordsLimit is the maximum number of records per PutRecords call.
	putRecordsLimit = 500
)

// KinesisAPI defines the Kinesis operations required for emitting records.
type KinesisAPI interface {
	PutRecords(
		ctx context.Context,
		params *kinesis.PutRecordsInput,
		optFns ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error)
}

// Sink emits records to a named destination stream.
type Sink interface {
	Put(ctx context.Context, streamName string, records []any) error
}

// KinesisSink writes JSON encoded records to Kinesis data streams.
type KinesisSink struct {
	client KinesisAPI
}

func NewKinesisSink(client KinesisAPI) *KinesisSink {
	return &KinesisSink{client: client}
}

// Put encodes every record as JSON and sends them in order, in batches of 500.
// Any rejected record fails the call; accepted records are not rolled back.
func (s *KinesisSink) Put(ctx context.Context, streamName string, records []any) error {
	ctx, span := tracer.Start(ctx, "stream.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("stream.name", streamName),
		attribute.Int("stream.records", len(records)),
	)

	entries := make([]types.PutRecordsRequestEntry, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("cannot encode record: %w", err)
		}
		entries = append(entries, types.PutRecordsRequestEntry{
			Data:         data,
			PartitionKey: aws.String(partitionKey),
		})
	}

	for i := 0; i < len(entries); i += putRecordsLimit {
		end := min(i+putRecordsLimit, len(entries))

		out, err := s.client.PutRecords(ctx, &kinesis.PutRecordsInput{
			Records:    entries[i:end],
			StreamName: aws.String(streamName),
		})
		if err != nil {
			return fmt.Errorf("cannot put records to %q: %w", streamName, err)
		}

		if failed := aws.ToInt32(out.FailedRecordCount); failed > 0 {
			return fmt.Errorf("cannot put records to %q: %d of %d failed: %s",
				streamName, failed, end-i, firstFailure(out.Records))
		}
	}

	return nil
}

func firstFailure(results []types.PutRecordsResultEntry) string {
	for _, r := range results {
		if r.ErrorCode != nil {
			return aws.ToString(r.ErrorCode) + " - " + aws.ToString(r.ErrorMessage)
		}
	}
	return "unknown error"
}
