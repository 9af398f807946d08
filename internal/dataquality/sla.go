package dataquality

import (
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	DefaultTreatMissingData = "NOT_BREACHING"
	DefaultSeverity         = "default"
)

// SLA is a threshold bound to exactly one metric.
type SLA struct {
	Metric             Metric
	Threshold          float64
	ComparisonOperator types.ComparisonOperator
	DatapointsToAlarm  int32
	EvaluationPeriods  int32
	TreatMissingData   string
	Severity           string
	ShortDescription   string
	Details            string

	// SNSEnabled opts the SLA into publishing alarm notifications.
	SNSEnabled bool

	// SLASet is the name of the owning set, stamped once on registration.
	SLASet string
}

// SLAOption customizes an SLA built by NewSLA.
type SLAOption func(*SLA)

func WithDatapointsToAlarm(n int32) SLAOption {
	return func(s *SLA) {
		s.DatapointsToAlarm = n
	}
}

func WithEvaluationPeriods(n int32) SLAOption {
	return func(s *SLA) {
		s.EvaluationPeriods = n
	}
}

func WithTreatMissingData(v string) SLAOption {
	return func(s *SLA) {
		s.TreatMissingData = v
	}
}

func WithSeverity(v string) SLAOption {
	return func(s *SLA) {
		s.Severity = v
	}
}

func WithDescription(short, details string) SLAOption {
	return func(s *SLA) {
		s.ShortDescription = short
		s.Details = details
	}
}

func WithSNSEnabled(enabled bool) SLAOption {
	return func(s *SLA) {
		s.SNSEnabled = enabled
	}
}

// NewSLA returns a plain SLA value over a copy of metric.
func NewSLA(metric Metric, threshold float64, op types.ComparisonOperator, opts ...SLAOption) SLA {
	s := SLA{
		Metric:             metric,
		Threshold:          threshold,
		ComparisonOperator: op,
		DatapointsToAlarm:  1,
		EvaluationPeriods:  1,
		TreatMissingData:   DefaultTreatMissingData,
		Severity:           DefaultSeverity,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// AlarmName is the name of the CloudWatch alarm deployed for the SLA.
func (s SLA) AlarmName(region string) string {
	return AlarmName(s.Metric, region)
}
