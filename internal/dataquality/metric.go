// Package dataquality models declared CloudWatch metrics, the SLAs bound to them
// and the deterministic identities that correlate both with data returned by AWS.
package dataquality

import (
	"errors"
	"fmt"
	"strings"
)

// Frequency is the sampling tier of a metric.
type Frequency string

const (
	FrequencyMinute Frequency = "minute"
	FrequencyHour   Frequency = "hour"
	FrequencyDay    Frequency = "day"
)

// ErrUnknownFrequency is returned when a frequency has no period mapping.
var ErrUnknownFrequency = errors.New("unknown frequency")

// FrequencyToPeriod converts a frequency tier to its period in seconds.
func FrequencyToPeriod(f Frequency) (int32, error) {
	switch f {
	case FrequencyMinute:
		return 60, nil
	case FrequencyHour:
		return 3600, nil
	case FrequencyDay:
		return 86400, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, f)
	}
}

// Dimension is a CloudWatch dimension name/value pair.
type Dimension struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// IsBucket reports whether the dimension is excluded from identities.
func (d Dimension) IsBucket() bool {
	return strings.HasSuffix(d.Name, "Bucket")
}

// Metadata is a free-form annotation attached to a metric.
type Metadata struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Dashboard groups metrics for presentation. It never takes part in identity.
type Dashboard struct {
	Name     string `json:"dashboard_name"`
	Category string `json:"dashboard_category,omitempty"`
}

// Dataset points at a catalog table used by business metrics.
type Dataset struct {
	Catalog  string `json:"catalog"`
	Database string `json:"database"`
	Table    string `json:"table"`
	Alias    string `json:"alias"`
}

// NewDataset builds a Dataset, defaulting the alias to the table name.
func NewDataset(catalog, database, table, alias string) Dataset {
	if alias == "" {
		alias = table
	}
	return Dataset{
		Catalog:  catalog,
		Database: database,
		Table:    table,
		Alias:    alias,
	}
}

// Business holds the data query of a business metric. It is evaluated out of band.
type Business struct {
	Query             string
	Dataset           Dataset
	ReferenceDatasets []Dataset
}

// Metric is a declared, queryable CloudWatch measurement.
type Metric struct {
	Namespace  string
	Name       string
	Frequency  Frequency
	Statistic  string
	Period     int32
	Dimensions []Dimension
	Metadata   []Metadata
	Dashboard  Dashboard

	// MetricSet is the name of the owning set, stamped once on registration.
	MetricSet string

	// Business is non-nil for business metrics.
	Business *Business
}

// MetricOption customizes a Metric built by NewMetric.
type MetricOption func(*Metric)

// WithPeriod overrides the period derived from the frequency.
func WithPeriod(seconds int32) MetricOption {
	return func(m *Metric) {
		m.Period = seconds
	}
}

func WithDimensions(dimensions ...Dimension) MetricOption {
	return func(m *Metric) {
		m.Dimensions = append(m.Dimensions, dimensions...)
	}
}

func WithMetadata(metadata ...Metadata) MetricOption {
	return func(m *Metric) {
		m.Metadata = append(m.Metadata, metadata...)
	}
}

func WithDashboard(name, category string) MetricOption {
	return func(m *Metric) {
		m.Dashboard = Dashboard{Name: name, Category: category}
	}
}

// WithBusiness turns the metric into a business metric.
func WithBusiness(query string, dataset Dataset, references ...Dataset) MetricOption {
	return func(m *Metric) {
		m.Business = &Business{
			Query:             query,
			Dataset:           dataset,
			ReferenceDatasets: references,
		}
	}
}

// NewMetric returns a plain Metric value. It does not register the metric anywhere.
//
// The period defaults to the frequency's period. An unknown frequency leaves the
// period at zero and the failure surfaces when the metric is queried.
func NewMetric(namespace, name string, frequency Frequency, statistic string, opts ...MetricOption) Metric {
	m := Metric{
		Namespace: namespace,
		Name:      name,
		Frequency: frequency,
		Statistic: statistic,
	}

	for _, opt := range opts {
		opt(&m)
	}

	if m.Period == 0 {
		if period, err := FrequencyToPeriod(frequency); err == nil {
			m.Period = period
		}
	}

	return m
}

// IsBusiness reports whether the metric carries a data query.
func (m Metric) IsBusiness() bool {
	return m.Business != nil
}

// IdentityDimensions returns the dimensions that take part in identities, in order.
func (m Metric) IdentityDimensions() []Dimension {
	dims := make([]Dimension, 0, len(m.Dimensions))
	for _, d := range m.Dimensions {
		if d.IsBucket() {
			continue
		}
		dims = append(dims, d)
	}
	return dims
}

// PrimaryDimensionValue returns the value of the first identity dimension, or "".
func (m Metric) PrimaryDimensionValue() string {
	for _, d := range m.Dimensions {
		if !d.IsBucket() {
			return d.Value
		}
	}
	return ""
}

// MetadataValue looks up a metadata entry by name, case-insensitively. The last
// matching entry wins.
func (m Metric) MetadataValue(names ...string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, md := range m.Metadata {
		for _, name := range names {
			if strings.EqualFold(md.Name, name) {
				value, found = md.Value, true
			}
		}
	}
	return value, found
}

// MetadataMap returns metadata as a name to value mapping.
func (m Metric) MetadataMap() map[string]string {
	if len(m.Metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.Metadata))
	for _, md := range m.Metadata {
		out[md.Name] = md.Value
	}
	return out
}

// DimensionMap returns every dimension, Bucket ones included, as a name to value mapping.
func (m Metric) DimensionMap() map[string]string {
	if len(m.Dimensions) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.Dimensions))
	for _, d := range m.Dimensions {
		out[d.Name] = d.Value
	}
	return out
}
