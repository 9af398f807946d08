package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func records(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]int{"i": i}
	}
	return out
}

func TestKinesisSink_Put(t *testing.T) {
	mockKinesis := new(KinesisAPIMock)
	sink := NewKinesisSink(mockKinesis)

	mockKinesis.On("PutRecords",
		mock.Anything,
		mock.MatchedBy(func(in *kinesis.PutRecordsInput) bool {
			return aws.ToString(in.StreamName) == "day-stream" &&
				len(in.Records) == 500 &&
				aws.ToString(in.Records[0].PartitionKey) == "default" &&
				string(in.Records[0].Data) == `{"i":0}`
		}),
		mock.AnythingOfType("[]func(*kinesis.Options)"),
	).Return(&kinesis.PutRecordsOutput{FailedRecordCount: aws.Int32(0)}, nil).Once()

	mockKinesis.On("PutRecords",
		mock.Anything,
		mock.MatchedBy(func(in *kinesis.PutRecordsInput) bool {
			return len(in.Records) == 2 && string(in.Records[1].Data) == `{"i":501}`
		}),
		mock.AnythingOfType("[]func(*kinesis.Options)"),
	).Return(&kinesis.PutRecordsOutput{}, nil).Once()

	err := sink.Put(context.Background(), "day-stream", records(502))
	require.NoError(t, err)
	mockKinesis.AssertExpectations(t)
}

func TestKinesisSink_PutEmpty(t *testing.T) {
	mockKinesis := new(KinesisAPIMock)

	err := NewKinesisSink(mockKinesis).Put(context.Background(), "day-stream", nil)
	require.NoError(t, err)
	mockKinesis.AssertNotCalled(t, "PutRecords", mock.Anything, mock.Anything, mock.Anything)
}

func TestKinesisSink_PutFailedRecords(t *testing.T) {
	mockKinesis := new(KinesisAPIMock)

	mockKinesis.On("PutRecords", mock.Anything, mock.Anything, mock.Anything).
		Return(&kinesis.PutRecordsOutput{
			FailedRecordCount: aws.Int32(1),
			Records: []types.PutRecordsResultEntry{
				{SequenceNumber: aws.String("1")},
				{ErrorCode: aws.String("ProvisionedThroughputExceededException"), ErrorMessage: aws.String("slow down")},
			},
		}, nil).Once()

	err := NewKinesisSink(mockKinesis).Put(context.Background(), "day-stream", records(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 failed")
	assert.Contains(t, err.Error(), "ProvisionedThroughputExceededException - slow down")
}

func TestKinesisSink_PutError(t *testing.T) {
	mockKinesis := new(KinesisAPIMock)
	expectedError := errors.New("stream not found")

	mockKinesis.On("PutRecords", mock.Anything, mock.Anything, mock.Anything).
		Return((*kinesis.PutRecordsOutput)(nil), expectedError).Once()

	err := NewKinesisSink(mockKinesis).Put(context.Background(), "day-stream", records(1))
	assert.ErrorIs(t, err, expectedError)
}

func TestKinesisSink_PutUnencodable(t *testing.T) {
	mockKinesis := new(KinesisAPIMock)

	err := NewKinesisSink(mockKinesis).Put(context.Background(), "day-stream", []any{make(chan int)})
	require.Error(t, err)
	mockKinesis.AssertNotCalled(t, "PutRecords", mock.Anything, mock.Anything, mock.Anything)
}
