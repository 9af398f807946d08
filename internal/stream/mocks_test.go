package stream

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/stretchr/testify/mock"
)

// CloudWatchAPIMock is a mock implementation of the CloudWatchAPI interface.
type CloudWatchAPIMock struct {
	mock.Mock
}

func (m *CloudWatchAPIMock) GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudwatch.GetMetricDataOutput), args.Error(1)
}

func (m *CloudWatchAPIMock) DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudwatch.DescribeAlarmsOutput), args.Error(1)
}

// KinesisAPIMock is a mock implementation of the KinesisAPI interface.
type KinesisAPIMock struct {
	mock.Mock
}

func (m *KinesisAPIMock) PutRecords(ctx context.Context, params *kinesis.PutRecordsInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kinesis.PutRecordsOutput), args.Error(1)
}

// SinkMock is a mock implementation of the Sink interface.
type SinkMock struct {
	mock.Mock
}

func (m *SinkMock) Put(ctx context.Context, streamName string, records []any) error {
	args := m.Called(ctx, streamName, records)
	return args.Error(0)
}
