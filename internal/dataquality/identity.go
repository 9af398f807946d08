package dataquality

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// AlarmNamePrefix is the fixed prefix of every SLA alarm name.
	AlarmNamePrefix = "data-gov"

	alarmNameMarker = "-SLA-Alarm-"
	fragmentMarker  = "-SLA"
)

// ErrMalformedAlarmName is returned when an alarm name does not have the encoded shape.
var ErrMalformedAlarmName = errors.New("malformed alarm name")

var nonWord = regexp.MustCompile(`\W+`)

// UniqueID returns the metric's query identifier: namespace, name, frequency and every
// non-Bucket dimension name and value, with non-word characters stripped, lower-cased.
func (m Metric) UniqueID() string {
	var b strings.Builder
	b.WriteString(m.Namespace)
	b.WriteString(m.Name)
	b.WriteString(string(m.Frequency))
	for _, d := range m.IdentityDimensions() {
		b.WriteString(d.Name)
		b.WriteString(d.Value)
	}
	return strings.ToLower(nonWord.ReplaceAllString(b.String(), ""))
}

// AlarmUniqueID returns the dash separated identity embedded in alarm names.
// The trailing separator is kept.
func (m Metric) AlarmUniqueID() string {
	var b strings.Builder
	b.WriteString(m.Namespace + "-" + m.Name + "-" + string(m.Frequency) + "-")
	for _, d := range m.IdentityDimensions() {
		b.WriteString(d.Name + "-" + d.Value + "-")
	}
	return strings.ToLower(strings.ReplaceAll(b.String(), "/", ""))
}

// WidgetTitle returns the display title of the metric's dashboard widget.
func (m Metric) WidgetTitle() string {
	var b strings.Builder
	b.WriteString(m.Name + " per " + string(m.Frequency) + "-")
	for _, d := range m.IdentityDimensions() {
		b.WriteString(d.Value)
	}
	return strings.ToLower(strings.ReplaceAll(b.String(), "/", ""))
}

// AlarmName encodes the SLA alarm name of a metric in the given region.
func AlarmName(m Metric, region string) string {
	return AlarmNamePrefix + "-" + strings.TrimSuffix(m.AlarmUniqueID(), "-") + alarmNameMarker + region
}

// AlarmIdentity recovers the identity encoded by AlarmName. The result is comparable
// to a metric's AlarmUniqueID without its trailing separator.
func AlarmIdentity(alarmName string) (string, error) {
	rest, ok := strings.CutPrefix(alarmName, AlarmNamePrefix+"-")
	if !ok {
		return "", ErrMalformedAlarmName
	}

	i := strings.LastIndex(rest, alarmNameMarker)
	if i <= 0 {
		return "", ErrMalformedAlarmName
	}

	return rest[:i], nil
}

// AlarmFragments decodes the metric name, frequency and dimension value fragments of
// an alarm name by token position: tokens 3 and 4 of the part before "-SLA", and the
// remaining tokens from 6 on joined back with "-".
//
// Values that contain "-" shift every position and decode incorrectly.
func AlarmFragments(alarmName string) ([]string, error) {
	i := strings.Index(alarmName, fragmentMarker)
	if i < 0 {
		return nil, ErrMalformedAlarmName
	}

	tokens := strings.Split(alarmName[:i], "-")
	if len(tokens) < 6 {
		return nil, ErrMalformedAlarmName
	}

	return []string{tokens[3], tokens[4], strings.Join(tokens[6:], "-")}, nil
}
