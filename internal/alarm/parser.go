// Package alarm correlates CloudWatch alarm notifications with the declared SLAs
// and builds the payload forwarded to the central notification topic.
package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm")

// ErrNoMatchingSLA is returned when no declared SLA corresponds to the alarm.
var ErrNoMatchingSLA = errors.New("no matching sla")

const (
	// Origin tags every payload built by the parser.
	Origin = "Data Governance"

	unknownReference = "Unknown"
)

// Notification is the alarm state-change message CloudWatch publishes to SNS.
type Notification struct {
	AlarmName     string   `json:"AlarmName"`
	NewStateValue string   `json:"NewStateValue"`
	Trigger       *Trigger `json:"Trigger,omitempty"`
}

// Trigger describes the metric the alarm evaluates.
type Trigger struct {
	MetricName string      `json:"MetricName"`
	Namespace  string      `json:"Namespace"`
	Period     int32       `json:"Period"`
	Statistic  string      `json:"Statistic"`
	Dimensions []Dimension `json:"Dimensions"`
}

// Dimension uses the lower-case keys of the notification format.
type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is the message forwarded for a matched SLA.
type Payload struct {
	Details          string `json:"details"`
	ShortDescription string `json:"short_description"`
	Impact           string `json:"impact"`
	UniqueID         string `json:"unique_id"`
	AlarmOrigin      string `json:"alarm_origin"`
	ReferenceID      string `json:"reference_id"`
}

// Match pairs the selected SLA with the payload built for it.
type Match struct {
	SLA     dataquality.SLA
	State   string
	Payload Payload
}

// Parser selects the SLA an alarm notification refers to.
type Parser struct {
	slas     []dataquality.SLA
	failFast bool
	logger   *slog.Logger
}

type Option func(*Parser)

// WithFailFast makes the fragment scan stop at the first SLA that does not match
// instead of searching the remaining ones. Identity lookups are skipped.
func WithFailFast() Option {
	return func(p *Parser) {
		p.failFast = true
	}
}

func NewParser(slas []dataquality.SLA, logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{
		slas:   slas,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseNotification decodes an SNS message body.
func ParseNotification(message string) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(message), &n); err != nil {
		return nil, fmt.Errorf("cannot parse alarm notification: %w", err)
	}
	if n.AlarmName == "" {
		return nil, errors.New("alarm name is empty")
	}
	return &n, nil
}

// StateFromSubject returns the state prefix of a subject such as
// `ALARM: "name" in US East (N. Virginia)`.
func StateFromSubject(subject string) string {
	state, _, _ := strings.Cut(subject, ":")
	return strings.TrimSpace(state)
}

// Parse decodes the notification and returns the SLA it refers to with its payload.
func (p *Parser) Parse(ctx context.Context, subject, message string) (*Match, error) {
	ctx, span := tracer.Start(ctx, "alarm.parse")
	defer span.End()

	n, err := ParseNotification(message)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("alarm.name", n.AlarmName))

	state := StateFromSubject(subject)
	if state == "" {
		state = n.NewStateValue
	}

	sla, err := p.Find(ctx, n)
	if err != nil {
		return nil, err
	}

	return &Match{
		SLA:     sla,
		State:   state,
		Payload: BuildPayload(sla, state),
	}, nil
}

// Find returns the first SLA whose metric the notification refers to. An exact
// identity match on the alarm name is tried first, then the Trigger block, then
// the positional fragments.
func (p *Parser) Find(ctx context.Context, n *Notification) (dataquality.SLA, error) {
	if !p.failFast {
		if sla, ok := p.byIdentity(n.AlarmName); ok {
			return sla, nil
		}
		if sla, ok := p.byTrigger(n.Trigger); ok {
			return sla, nil
		}
	}

	fragments, err := dataquality.AlarmFragments(n.AlarmName)
	if err != nil {
		return dataquality.SLA{}, fmt.Errorf("cannot decode alarm %q: %w", n.AlarmName, err)
	}

	p.logger.DebugContext(ctx, "decoded alarm fragments",
		slog.String("alarmName", n.AlarmName),
		slog.Any("fragments", fragments))

	for _, sla := range p.slas {
		if matchesFragments(sla.Metric, fragments) {
			return sla, nil
		}
		if p.failFast {
			return dataquality.SLA{}, fmt.Errorf("%w: alarm %q does not match sla on %s",
				ErrNoMatchingSLA, n.AlarmName, sla.Metric.Name)
		}
	}

	return dataquality.SLA{}, fmt.Errorf("%w: alarm %q", ErrNoMatchingSLA, n.AlarmName)
}

func (p *Parser) byIdentity(alarmName string) (dataquality.SLA, bool) {
	identity, err := dataquality.AlarmIdentity(alarmName)
	if err != nil {
		return dataquality.SLA{}, false
	}
	for _, sla := range p.slas {
		if strings.TrimSuffix(sla.Metric.AlarmUniqueID(), "-") == identity {
			return sla, true
		}
	}
	return dataquality.SLA{}, false
}

func (p *Parser) byTrigger(t *Trigger) (dataquality.SLA, bool) {
	if t == nil || t.MetricName == "" {
		return dataquality.SLA{}, false
	}
	for _, sla := range p.slas {
		if matchesTrigger(sla.Metric, t) {
			return sla, true
		}
	}
	return dataquality.SLA{}, false
}

func matchesTrigger(m dataquality.Metric, t *Trigger) bool {
	if m.Namespace != t.Namespace || m.Name != t.MetricName {
		return false
	}
	if t.Period != 0 && m.Period != t.Period {
		return false
	}
	if t.Statistic != "" && m.Statistic != "" && !strings.EqualFold(m.Statistic, t.Statistic) {
		return false
	}
	if len(m.Dimensions) != len(t.Dimensions) {
		return false
	}
	for _, d := range m.Dimensions {
		if !slices.Contains(t.Dimensions, Dimension{Name: d.Name, Value: d.Value}) {
			return false
		}
	}
	return true
}

func matchesFragments(m dataquality.Metric, fragments []string) bool {
	value := m.PrimaryDimensionValue()
	if value == "" {
		return false
	}
	return slices.Contains(fragments, strings.ToLower(m.Name)) &&
		slices.Contains(fragments, string(m.Frequency)) &&
		slices.Contains(fragments, strings.ToLower(value))
}

// BuildPayload renders the notification payload of an SLA breached in state.
func BuildPayload(sla dataquality.SLA, state string) Payload {
	m := sla.Metric

	reference, ok := m.MetadataValue("function", "dataset")
	if !ok {
		reference = unknownReference
	}

	return Payload{
		Details:          sla.Details,
		ShortDescription: sla.ShortDescription + " caused by CloudWatch Alarm in " + state + " state",
		Impact:           sla.Severity,
		UniqueID:         m.PrimaryDimensionValue() + "-" + m.Name + "-" + string(m.Frequency),
		AlarmOrigin:      Origin,
		ReferenceID:      reference,
	}
}
