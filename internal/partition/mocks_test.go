package partition

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/stretchr/testify/mock"
)

// GlueAPIMock is a mock implementation of the GlueAPI interface.
type GlueAPIMock struct {
	mock.Mock
}

func (m *GlueAPIMock) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.GetTableOutput), args.Error(1)
}

func (m *GlueAPIMock) GetPartitions(ctx context.Context, params *glue.GetPartitionsInput, optFns ...func(*glue.Options)) (*glue.GetPartitionsOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.GetPartitionsOutput), args.Error(1)
}

func (m *GlueAPIMock) CreatePartition(ctx context.Context, params *glue.CreatePartitionInput, optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*glue.CreatePartitionOutput), args.Error(1)
}
