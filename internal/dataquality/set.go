package dataquality

// MetricSet is an ordered, append-only collection of metrics.
type MetricSet struct {
	Name     string
	Schedule string
	Metrics  []Metric
}

// NewMetricSet creates a set and registers metrics into it, in order.
func NewMetricSet(name, schedule string, metrics ...Metric) *MetricSet {
	s := &MetricSet{Name: name, Schedule: schedule}
	s.Add(metrics...)
	return s
}

// Add appends metrics without dedup or validation. A metric that already belongs to a
// set keeps its owner.
func (s *MetricSet) Add(metrics ...Metric) {
	for _, m := range metrics {
		if m.MetricSet == "" {
			m.MetricSet = s.Name
		}
		s.Metrics = append(s.Metrics, m)
	}
}

// SLASet is an ordered, append-only collection of SLAs.
type SLASet struct {
	Name string
	SLAs []SLA
}

func NewSLASet(name string, slas ...SLA) *SLASet {
	s := &SLASet{Name: name}
	s.Add(slas...)
	return s
}

// Add appends SLAs without dedup or validation.
func (s *SLASet) Add(slas ...SLA) {
	for _, sla := range slas {
		if sla.SLASet == "" {
			sla.SLASet = s.Name
		}
		s.SLAs = append(s.SLAs, sla)
	}
}
