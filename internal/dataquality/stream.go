package dataquality

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricStream flattens metric sets into per-frequency GetMetricData queries.
type MetricStream struct {
	Metrics []Metric
}

// NewMetricStream concatenates the metrics of every set, preserving order.
func NewMetricStream(sets ...*MetricSet) *MetricStream {
	var metrics []Metric
	for _, s := range sets {
		if s == nil {
			continue
		}
		metrics = append(metrics, s.Metrics...)
	}
	return &MetricStream{Metrics: metrics}
}

// MetricDataQueries returns one query per metric of the given frequency, identified by
// the metric's UniqueID. Colliding identities are not deduplicated.
func (s *MetricStream) MetricDataQueries(frequency Frequency) ([]types.MetricDataQuery, error) {
	var queries []types.MetricDataQuery
	for _, m := range s.Metrics {
		if m.Frequency != frequency {
			continue
		}

		if m.Period <= 0 {
			return nil, fmt.Errorf("cannot build query for %q: %w: %q", m.Name, ErrUnknownFrequency, m.Frequency)
		}

		queries = append(queries, MetricDataQuery(m))
	}
	return queries, nil
}

// ByUniqueID indexes the stream's metrics by UniqueID. On collision the last metric wins.
func (s *MetricStream) ByUniqueID() map[string]Metric {
	index := make(map[string]Metric, len(s.Metrics))
	for _, m := range s.Metrics {
		index[m.UniqueID()] = m
	}
	return index
}

// MetricDataQuery builds the GetMetricData query of a single metric.
func MetricDataQuery(m Metric) types.MetricDataQuery {
	dims := make([]types.Dimension, 0, len(m.Dimensions))
	for _, d := range m.Dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(d.Name),
			Value: aws.String(d.Value),
		})
	}

	return types.MetricDataQuery{
		Id: aws.String(m.UniqueID()),
		MetricStat: &types.MetricStat{
			Metric: &types.Metric{
				Namespace:  aws.String(m.Namespace),
				MetricName: aws.String(m.Name),
				Dimensions: dims,
			},
			Period: aws.Int32(m.Period),
			Stat:   aws.String(m.Statistic),
		},
		ReturnData: aws.Bool(true),
	}
}
