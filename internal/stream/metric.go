package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

const (
	// windowAlignment is the boundary the query window end is truncated to.
	windowAlignment = 10 * time.Minute

	// metricDataQueryLimit is the maximum number of queries per GetMetricData call.
	metricDataQueryLimit = 500
)

// CloudWatchAPI defines the CloudWatch operations required by the producers.
type CloudWatchAPI interface {
	GetMetricData(
		ctx context.Context,
		input *cloudwatch.GetMetricDataInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)

	DescribeAlarms(
		ctx context.Context,
		input *cloudwatch.DescribeAlarmsInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// Origin identifies the account and region a task runs in.
type Origin struct {
	AccountID string
	Region    string
}

// Option configures a producer.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// MetricRecord is a GetMetricData result annotated with its metric definition.
// Results that match no definition carry only the native and stamped fields.
type MetricRecord struct {
	ID         string            `json:"Id"`
	Label      string            `json:"Label,omitempty"`
	StatusCode string            `json:"StatusCode,omitempty"`
	Timestamps []time.Time       `json:"Timestamps,omitempty"`
	Values     []float64         `json:"Values,omitempty"`
	Namespace  string            `json:"Namespace,omitempty"`
	Name       string            `json:"Name,omitempty"`
	Period     int32             `json:"Period,omitempty"`
	Statistic  string            `json:"Statistic,omitempty"`
	Metadata   map[string]string `json:"Metadata,omitempty"`
	Dimensions map[string]string `json:"Dimensions,omitempty"`

	CollectionTime  string     `json:"CollectionTime"`
	AccountID       string     `json:"AccountId"`
	Region          string     `json:"Region"`
	MetricTimestamp *time.Time `json:"MetricTimestamp"`
	MetricValue     *float64   `json:"MetricValue"`
	Frequency       string     `json:"Frequency"`
}

// MetricProducer fetches the latest datapoints of declared metrics and streams them.
type MetricProducer struct {
	cw      CloudWatchAPI
	sink    Sink
	streams map[dataquality.Frequency]string
	now     func() time.Time
	logger  *slog.Logger
}

// NewMetricProducer creates a MetricProducer. streams maps each frequency to its
// destination stream name.
func NewMetricProducer(
	cw CloudWatchAPI,
	sink Sink,
	streams map[dataquality.Frequency]string,
	logger *slog.Logger,
	opts ...Option,
) *MetricProducer {
	s := newSettings(opts)
	return &MetricProducer{
		cw:      cw,
		sink:    sink,
		streams: streams,
		now:     s.now,
		logger:  logger,
	}
}

// Produce queries every metric of the given frequency over the window ending at the
// previous 10 minute boundary and emits one record per result. It returns the number
// of records emitted.
func (p *MetricProducer) Produce(
	ctx context.Context,
	stream *dataquality.MetricStream,
	frequency dataquality.Frequency,
	origin Origin,
) (int, error) {
	ctx, span := tracer.Start(ctx, "stream.produce_metrics")
	defer span.End()
	span.SetAttributes(
		attribute.String("metric.frequency", string(frequency)),
		attribute.String("account.id", origin.AccountID),
	)

	streamName, ok := p.streams[frequency]
	if !ok || streamName == "" {
		return 0, fmt.Errorf("cannot resolve stream: %w: %q", dataquality.ErrUnknownFrequency, frequency)
	}

	end := p.now().UTC().Truncate(windowAlignment)

	queries, err := stream.MetricDataQueries(frequency)
	if err != nil {
		return 0, err
	}

	if len(queries) == 0 {
		p.logger.InfoContext(ctx, "no metrics matched frequency", slog.String("frequency", string(frequency)))
		return 0, nil
	}

	var results []types.MetricDataResult
	for _, group := range groupByPeriod(queries) {
		start := end.Add(-time.Duration(group.period) * time.Second)

		groupResults, err := p.fetch(ctx, group.queries, start, end)
		if err != nil {
			return 0, err
		}
		results = append(results, groupResults...)
	}

	index := stream.ByUniqueID()
	records := make([]any, 0, len(results))
	misses := 0

	for _, r := range results {
		rec := newMetricRecord(r, end, origin, frequency)
		if m, ok := index[aws.ToString(r.Id)]; ok {
			rec.annotate(m)
		} else {
			misses++
		}
		records = append(records, rec)
	}

	if misses > 0 {
		p.logger.WarnContext(ctx, "metric results without definition",
			slog.String("frequency", string(frequency)),
			slog.Int("count", misses))
	}

	if err := p.sink.Put(ctx, streamName, records); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("stream.records", len(records)))
	p.logger.InfoContext(ctx, "metric records emitted",
		slog.String("frequency", string(frequency)),
		slog.String("stream", streamName),
		slog.Int("count", len(records)))

	return len(records), nil
}

type periodGroup struct {
	period  int32
	queries []types.MetricDataQuery
}

// groupByPeriod groups queries by period in first seen order.
func groupByPeriod(queries []types.MetricDataQuery) []periodGroup {
	var groups []periodGroup
	index := make(map[int32]int)

	for _, q := range queries {
		period := aws.ToInt32(q.MetricStat.Period)
		i, ok := index[period]
		if !ok {
			i = len(groups)
			index[period] = i
			groups = append(groups, periodGroup{period: period})
		}
		groups[i].queries = append(groups[i].queries, q)
	}

	return groups
}

func (p *MetricProducer) fetch(
	ctx context.Context,
	queries []types.MetricDataQuery,
	start, end time.Time,
) ([]types.MetricDataResult, error) {
	var results []types.MetricDataResult

	for i := 0; i < len(queries); i += metricDataQueryLimit {
		batch := queries[i:min(i+metricDataQueryLimit, len(queries))]

		paginator := cloudwatch.NewGetMetricDataPaginator(p.cw, &cloudwatch.GetMetricDataInput{
			MetricDataQueries: batch,
			StartTime:         aws.Time(start),
			EndTime:           aws.Time(end),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("cannot get metric data on next page: %w", err)
			}
			results = append(results, page.MetricDataResults...)
		}
	}

	return results, nil
}

func newMetricRecord(r types.MetricDataResult, end time.Time, origin Origin, frequency dataquality.Frequency) *MetricRecord {
	rec := &MetricRecord{
		ID:             aws.ToString(r.Id),
		Label:          aws.ToString(r.Label),
		StatusCode:     string(r.StatusCode),
		Timestamps:     r.Timestamps,
		Values:         r.Values,
		CollectionTime: end.Format(time.RFC3339),
		AccountID:      origin.AccountID,
		Region:         origin.Region,
		Frequency:      string(frequency),
	}

	if len(r.Timestamps) > 0 {
		ts := r.Timestamps[0]
		rec.MetricTimestamp = &ts
	}
	if len(r.Values) > 0 {
		v := r.Values[0]
		rec.MetricValue = &v
	}

	return rec
}

func (r *MetricRecord) annotate(m dataquality.Metric) {
	r.Namespace = m.Namespace
	r.Name = m.Name
	r.Period = m.Period
	r.Statistic = m.Statistic
	r.Metadata = m.MetadataMap()
	r.Dimensions = m.DimensionMap()
}
