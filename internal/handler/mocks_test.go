package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream"
)

type DefinitionLoaderMock struct {
	mock.Mock
}

func (m *DefinitionLoaderMock) Load(ctx context.Context, account string) (*definition.Definition, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*definition.Definition), args.Error(1)
}

type MetricProducerMock struct {
	mock.Mock
}

func (m *MetricProducerMock) Produce(ctx context.Context, s *dataquality.MetricStream, frequency dataquality.Frequency, origin stream.Origin) (int, error) {
	args := m.Called(ctx, s, frequency, origin)
	return args.Int(0), args.Error(1)
}

type SLAProducerMock struct {
	mock.Mock
}

func (m *SLAProducerMock) Produce(ctx context.Context, metrics []dataquality.Metric, origin stream.Origin) (int, error) {
	args := m.Called(ctx, metrics, origin)
	return args.Int(0), args.Error(1)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(ctx context.Context, region string, payload *alarm.Payload) error {
	args := m.Called(ctx, region, payload)
	return args.Error(0)
}

type PartitionRegistrarMock struct {
	mock.Mock
}

func (m *PartitionRegistrarMock) Register(ctx context.Context, key string, catalogs []string) (int, error) {
	args := m.Called(ctx, key, catalogs)
	return args.Int(0), args.Error(1)
}
