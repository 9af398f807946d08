package definition

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

// ErrUnknownMetricRef is returned when an SLA references a metric id that the same
// source does not declare.
var ErrUnknownMetricRef = errors.New("sla references unknown metric")

var validate = validator.New(validator.WithRequiredStructEnabled())

type document struct {
	MetricSet *metricSetDocument `yaml:"metric_set"`
	SLASet    *slaSetDocument    `yaml:"sla_set"`
}

type metricSetDocument struct {
	Name     string           `yaml:"name" validate:"required"`
	Schedule string           `yaml:"schedule"`
	Metrics  []metricDocument `yaml:"metrics" validate:"dive"`
}

type metricDocument struct {
	ID         string                  `yaml:"id" validate:"required"`
	Namespace  string                  `yaml:"namespace" validate:"required"`
	Name       string                  `yaml:"name" validate:"required"`
	Frequency  string                  `yaml:"frequency" validate:"required"`
	Statistic  string                  `yaml:"statistic" validate:"required"`
	Period     int32                   `yaml:"period" validate:"gte=0"`
	Dimensions []dataquality.Dimension `yaml:"dimensions"`
	Metadata   []dataquality.Metadata  `yaml:"metadata"`
	Dashboard  *dashboardDocument      `yaml:"dashboard"`
	Business   *businessDocument       `yaml:"business"`
}

type dashboardDocument struct {
	Name     string `yaml:"name" validate:"required"`
	Category string `yaml:"category"`
}

type businessDocument struct {
	Query             string            `yaml:"query" validate:"required"`
	Dataset           datasetDocument   `yaml:"dataset"`
	ReferenceDatasets []datasetDocument `yaml:"reference_datasets" validate:"dive"`
}

type datasetDocument struct {
	Catalog  string `yaml:"catalog"`
	Database string `yaml:"database" validate:"required"`
	Table    string `yaml:"table" validate:"required"`
	Alias    string `yaml:"alias"`
}

type slaSetDocument struct {
	Name string        `yaml:"name"`
	SLAs []slaDocument `yaml:"slas" validate:"dive"`
}

type slaDocument struct {
	Metric             string  `yaml:"metric" validate:"required"`
	Threshold          float64 `yaml:"threshold"`
	ComparisonOperator string  `yaml:"comparison_operator" validate:"required"`
	DatapointsToAlarm  int32   `yaml:"datapoints_to_alarm" validate:"gte=0"`
	EvaluationPeriods  int32   `yaml:"evaluation_periods" validate:"gte=0"`
	TreatMissingData   string  `yaml:"treat_missing_data"`
	Severity           string  `yaml:"severity"`
	ShortDescription   string  `yaml:"short_description"`
	Details            string  `yaml:"details"`
	SNSEnabled         bool    `yaml:"sns_enabled"`
}

// Source is what a single definition document exposes. Either set may be nil.
type Source struct {
	Path      string
	MetricSet *dataquality.MetricSet
	SLASet    *dataquality.SLASet
}

// ParseSource decodes and validates one definition document.
func ParseSource(path string, data []byte) (*Source, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse definition %q: %w", path, err)
	}

	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid definition %q: %w", path, err)
	}

	src := &Source{Path: path}
	byID := make(map[string]dataquality.Metric)

	if doc.MetricSet != nil {
		set := dataquality.NewMetricSet(doc.MetricSet.Name, doc.MetricSet.Schedule)
		for _, md := range doc.MetricSet.Metrics {
			set.Add(md.metric())
			byID[md.ID] = set.Metrics[len(set.Metrics)-1]
		}
		src.MetricSet = set
	}

	if doc.SLASet != nil {
		set := dataquality.NewSLASet(doc.SLASet.Name)
		for i, sd := range doc.SLASet.SLAs {
			m, ok := byID[sd.Metric]
			if !ok {
				return nil, fmt.Errorf("invalid definition %q: sla %d: %w %q", path, i, ErrUnknownMetricRef, sd.Metric)
			}
			set.Add(sd.sla(m))
		}
		src.SLASet = set
	}

	return src, nil
}

func (d metricDocument) metric() dataquality.Metric {
	opts := []dataquality.MetricOption{
		dataquality.WithDimensions(d.Dimensions...),
		dataquality.WithMetadata(d.Metadata...),
	}

	if d.Period > 0 {
		opts = append(opts, dataquality.WithPeriod(d.Period))
	}

	if d.Dashboard != nil {
		opts = append(opts, dataquality.WithDashboard(d.Dashboard.Name, d.Dashboard.Category))
	}

	if d.Business != nil {
		refs := make([]dataquality.Dataset, 0, len(d.Business.ReferenceDatasets))
		for _, r := range d.Business.ReferenceDatasets {
			refs = append(refs, r.dataset())
		}
		opts = append(opts, dataquality.WithBusiness(d.Business.Query, d.Business.Dataset.dataset(), refs...))
	}

	return dataquality.NewMetric(d.Namespace, d.Name, dataquality.Frequency(d.Frequency), d.Statistic, opts...)
}

func (d datasetDocument) dataset() dataquality.Dataset {
	return dataquality.NewDataset(d.Catalog, d.Database, d.Table, d.Alias)
}

func (d slaDocument) sla(m dataquality.Metric) dataquality.SLA {
	opts := []dataquality.SLAOption{
		dataquality.WithDescription(d.ShortDescription, d.Details),
		dataquality.WithSNSEnabled(d.SNSEnabled),
	}

	if d.DatapointsToAlarm > 0 {
		opts = append(opts, dataquality.WithDatapointsToAlarm(d.DatapointsToAlarm))
	}
	if d.EvaluationPeriods > 0 {
		opts = append(opts, dataquality.WithEvaluationPeriods(d.EvaluationPeriods))
	}
	if d.TreatMissingData != "" {
		opts = append(opts, dataquality.WithTreatMissingData(d.TreatMissingData))
	}
	if d.Severity != "" {
		opts = append(opts, dataquality.WithSeverity(d.Severity))
	}

	return dataquality.NewSLA(m, d.Threshold, types.ComparisonOperator(d.ComparisonOperator), opts...)
}
