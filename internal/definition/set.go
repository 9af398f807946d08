package definition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

// MetricRecord is the flattened, serializable form of a metric.
type MetricRecord struct {
	Namespace         string  `json:"namespace"`
	Name              string  `json:"name"`
	Frequency         string  `json:"frequency"`
	Period            int32   `json:"period"`
	Statistic         string  `json:"statistic"`
	Metadata          *string `json:"metadata"`
	Dimensions        *string `json:"dimensions"`
	MetricSet         string  `json:"metric_set"`
	Dashboard         string  `json:"dashboard"`
	Account           string  `json:"account"`
	Dataset           *string `json:"dataset,omitempty"`
	ReferenceDatasets *string `json:"reference_datasets,omitempty"`
	Query             *string `json:"query,omitempty"`
}

// SLARecord is the flattened, serializable form of an SLA.
type SLARecord struct {
	Threshold          float64 `json:"threshold"`
	ComparisonOperator string  `json:"comparison_operator"`
	DatapointsToAlarm  int32   `json:"datapoints_to_alarm"`
	EvaluationPeriods  int32   `json:"evaluation_periods"`
	TreatMissingData   string  `json:"treat_missing_data"`
	Severity           string  `json:"severity"`
	ShortDescription   string  `json:"short_description"`
	Details            string  `json:"details"`
	SNSEnabled         bool    `json:"sns_enabled"`
	MetricNamespace    string  `json:"metric_namespace"`
	MetricName         string  `json:"metric_name"`
	MetricSet          string  `json:"metric_set"`
	MetricMetadata     *string `json:"metric_metadata"`
	MetricDimensions   *string `json:"metric_dimensions"`
	Account            string  `json:"account"`
}

// Set is the flattened model of every sub-account of a parent account.
type Set struct {
	Metrics []MetricRecord
	SLAs    []SLARecord
}

// DefinitionLoader loads the model of a single account.
type DefinitionLoader interface {
	Load(ctx context.Context, account string) (*Definition, error)
}

// AccountResolver resolves the sub-accounts sharing a parent account's group.
type AccountResolver interface {
	Streamers(account string) ([]string, error)
}

// BuildSet loads every sub-account of parent and flattens its metrics and SLAs in
// sub-account, set and entity order.
func BuildSet(ctx context.Context, loader DefinitionLoader, resolver AccountResolver, parent string) (*Set, error) {
	ctx, span := tracer.Start(ctx, "definition.build_set")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", parent))

	accounts, err := resolver.Streamers(parent)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve sub-accounts of %s: %w", parent, err)
	}

	set := &Set{}
	for _, account := range accounts {
		def, err := loader.Load(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("cannot load definitions of %s: %w", account, err)
		}

		for _, ms := range def.MetricSets {
			for _, m := range ms.Metrics {
				rec, err := FlattenMetric(m, account)
				if err != nil {
					return nil, err
				}
				set.Metrics = append(set.Metrics, rec)
			}
		}

		for _, ss := range def.SLASets {
			for _, s := range ss.SLAs {
				rec, err := FlattenSLA(s, account)
				if err != nil {
					return nil, err
				}
				set.SLAs = append(set.SLAs, rec)
			}
		}
	}

	return set, nil
}

// FlattenMetric converts a metric into its record. Metadata and dimensions become
// JSON encoded name to value mappings, null when empty.
func FlattenMetric(m dataquality.Metric, account string) (MetricRecord, error) {
	rec := MetricRecord{
		Namespace: m.Namespace,
		Name:      m.Name,
		Frequency: string(m.Frequency),
		Period:    m.Period,
		Statistic: m.Statistic,
		MetricSet: m.MetricSet,
		Dashboard: m.Dashboard.Name,
		Account:   account,
	}

	var err error
	if rec.Metadata, err = encodeMap(m.MetadataMap()); err != nil {
		return MetricRecord{}, fmt.Errorf("cannot encode metadata of %q: %w", m.Name, err)
	}
	if rec.Dimensions, err = encodeMap(m.DimensionMap()); err != nil {
		return MetricRecord{}, fmt.Errorf("cannot encode dimensions of %q: %w", m.Name, err)
	}

	if m.Business != nil {
		if rec.Dataset, err = encode(m.Business.Dataset); err != nil {
			return MetricRecord{}, fmt.Errorf("cannot encode dataset of %q: %w", m.Name, err)
		}
		if len(m.Business.ReferenceDatasets) > 0 {
			if rec.ReferenceDatasets, err = encode(m.Business.ReferenceDatasets); err != nil {
				return MetricRecord{}, fmt.Errorf("cannot encode reference datasets of %q: %w", m.Name, err)
			}
		}
		query := m.Business.Query
		rec.Query = &query
	}

	return rec, nil
}

// FlattenSLA converts an SLA into its record, decomposing the embedded metric.
func FlattenSLA(s dataquality.SLA, account string) (SLARecord, error) {
	rec := SLARecord{
		Threshold:          s.Threshold,
		ComparisonOperator: string(s.ComparisonOperator),
		DatapointsToAlarm:  s.DatapointsToAlarm,
		EvaluationPeriods:  s.EvaluationPeriods,
		TreatMissingData:   s.TreatMissingData,
		Severity:           s.Severity,
		ShortDescription:   s.ShortDescription,
		Details:            s.Details,
		SNSEnabled:         s.SNSEnabled,
		MetricNamespace:    s.Metric.Namespace,
		MetricName:         s.Metric.Name,
		MetricSet:          s.Metric.MetricSet,
		Account:            account,
	}

	var err error
	if rec.MetricMetadata, err = encodeMap(s.Metric.MetadataMap()); err != nil {
		return SLARecord{}, fmt.Errorf("cannot encode metadata of %q: %w", s.Metric.Name, err)
	}
	if rec.MetricDimensions, err = encodeMap(s.Metric.DimensionMap()); err != nil {
		return SLARecord{}, fmt.Errorf("cannot encode dimensions of %q: %w", s.Metric.Name, err)
	}

	return rec, nil
}

// EncodeMetrics writes metric records as JSON lines.
func (s *Set) EncodeMetrics(w io.Writer) error {
	return encodeLines(w, s.Metrics)
}

// EncodeSLAs writes SLA records as JSON lines.
func (s *Set) EncodeSLAs(w io.Writer) error {
	return encodeLines(w, s.SLAs)
}

func encodeLines[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("cannot encode record: %w", err)
		}
	}
	return nil
}

func encodeMap(m map[string]string) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return encode(m)
}

func encode(v any) (*string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	s := string(bytes.TrimRight(buf.Bytes(), "\n"))
	return &s, nil
}
