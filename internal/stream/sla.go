package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

// SLARecord is a CloudWatch alarm annotated with the metric it was deployed for.
// Unmatched alarms carry only their native fields.
type SLARecord struct {
	types.MetricAlarm

	AccountID       string            `json:"AccountId,omitempty"`
	Region          string            `json:"Region,omitempty"`
	MetricNamespace string            `json:"MetricNamespace,omitempty"`
	MetricPeriod    int32             `json:"MetricPeriod,omitempty"`
	MetricStatistic string            `json:"MetricStatistic,omitempty"`
	CollectionTime  string            `json:"CollectionTime,omitempty"`
	Metadata        map[string]string `json:"Metadata,omitempty"`
}

// SLAProducer streams the state of every deployed SLA alarm.
type SLAProducer struct {
	cw         CloudWatchAPI
	sink       Sink
	streamName string
	prefix     string
	now        func() time.Time
	logger     *slog.Logger
}

// NewSLAProducer creates an SLAProducer that describes alarms named with prefix.
func NewSLAProducer(
	cw CloudWatchAPI,
	sink Sink,
	streamName, prefix string,
	logger *slog.Logger,
	opts ...Option,
) *SLAProducer {
	s := newSettings(opts)
	return &SLAProducer{
		cw:         cw,
		sink:       sink,
		streamName: streamName,
		prefix:     prefix,
		now:        s.now,
		logger:     logger,
	}
}

// Produce emits one record per alarm, annotating those whose encoded identity matches
// a metric. It returns the number of records emitted.
func (p *SLAProducer) Produce(ctx context.Context, metrics []dataquality.Metric, origin Origin) (int, error) {
	ctx, span := tracer.Start(ctx, "stream.produce_slas")
	defer span.End()
	span.SetAttributes(
		attribute.String("alarm.prefix", p.prefix),
		attribute.String("account.id", origin.AccountID),
	)

	alarms, err := p.describeAlarms(ctx)
	if err != nil {
		return 0, err
	}

	index := make(map[string]dataquality.Metric, len(metrics))
	for _, m := range metrics {
		index[strings.TrimSuffix(m.AlarmUniqueID(), "-")] = m
	}

	collected := p.now().UTC().Format(time.RFC3339)
	records := make([]any, 0, len(alarms))
	matched := 0

	for _, alarm := range alarms {
		rec := &SLARecord{MetricAlarm: alarm}

		identity, err := dataquality.AlarmIdentity(aws.ToString(alarm.AlarmName))
		if err == nil {
			if m, ok := index[identity]; ok {
				rec.AccountID = origin.AccountID
				rec.Region = origin.Region
				rec.MetricNamespace = m.Namespace
				rec.MetricPeriod = m.Period
				rec.MetricStatistic = m.Statistic
				rec.CollectionTime = collected
				rec.Metadata = m.MetadataMap()
				matched++
			}
		}

		records = append(records, rec)
	}

	if err := p.sink.Put(ctx, p.streamName, records); err != nil {
		return 0, err
	}

	span.SetAttributes(
		attribute.Int("stream.records", len(records)),
		attribute.Int("stream.matched", matched),
	)
	p.logger.InfoContext(ctx, "sla records emitted",
		slog.String("stream", p.streamName),
		slog.Int("count", len(records)),
		slog.Int("matched", matched))

	return len(records), nil
}

func (p *SLAProducer) describeAlarms(ctx context.Context) ([]types.MetricAlarm, error) {
	paginator := cloudwatch.NewDescribeAlarmsPaginator(p.cw, &cloudwatch.DescribeAlarmsInput{
		AlarmNamePrefix: aws.String(p.prefix),
	})

	var alarms []types.MetricAlarm
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot describe alarms on next page: %w", err)
		}
		alarms = append(alarms, page.MetricAlarms...)
	}

	return alarms, nil
}
