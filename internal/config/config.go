// Package config loads the per-task configuration from the environment.
package config

import (
	"fmt"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/env"
)

type NotificationTarget string

const (
	TargetSNS         NotificationTarget = "sns"
	TargetEventBridge NotificationTarget = "eventbridge"
)

const (
	DefaultDefinitionsPath = "definitions"
	DefaultArchive         = "definitions.zip"
	DefaultGlueDatabase    = "data_governance"
)

// Definitions locates the definitions tree and its packaged fallback.
// The archive is read from S3 when Bucket is set, from the local Archive path otherwise.
type Definitions struct {
	Path    string
	Archive string
	Bucket  string
	Key     string
}

type MetricStreamerConfig struct {
	AWSRegion   string
	Definitions Definitions
	Streams     map[dataquality.Frequency]string
}

type SLAStreamerConfig struct {
	AWSRegion       string
	Definitions     Definitions
	StreamName      string
	AlarmNamePrefix string
}

type SLAParserConfig struct {
	AWSRegion   string
	Definitions Definitions
	FailFast    bool

	Target NotificationTarget

	CentralAccount string
	CentralTopic   string
	EventBusName   string
}

type PartitionConfig struct {
	AWSRegion string
	Database  string
	Catalogs  []string
}

func LoadMetricStreamerConfig() (*MetricStreamerConfig, error) {
	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	cfg := &MetricStreamerConfig{
		AWSRegion:   region,
		Definitions: loadDefinitions(),
		Streams:     make(map[dataquality.Frequency]string, 3),
	}

	for _, s := range []struct {
		freq dataquality.Frequency
		key  string
	}{
		{dataquality.FrequencyMinute, "KINESIS_MINUTE_STREAM_NAME"},
		{dataquality.FrequencyHour, "KINESIS_HOUR_STREAM_NAME"},
		{dataquality.FrequencyDay, "KINESIS_DAY_STREAM_NAME"},
	} {
		name, err := env.GetRequired(s.key, env.ParseNonEmptyString)
		if err != nil {
			return nil, err
		}
		cfg.Streams[s.freq] = name
	}

	return cfg, nil
}

func LoadSLAStreamerConfig() (*SLAStreamerConfig, error) {
	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	streamName, err := env.GetRequired("KINESIS_STREAM_NAME", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	return &SLAStreamerConfig{
		AWSRegion:       region,
		Definitions:     loadDefinitions(),
		StreamName:      streamName,
		AlarmNamePrefix: env.Get("ALARM_NAME_PREFIX", dataquality.AlarmNamePrefix, env.ParseNonEmptyString),
	}, nil
}

func LoadSLAParserConfig() (*SLAParserConfig, error) {
	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	cfg := &SLAParserConfig{
		AWSRegion:   region,
		Definitions: loadDefinitions(),
		FailFast:    env.Get("FAIL_FAST", false, env.ParseBool),
		Target:      NotificationTarget(env.Get("NOTIFICATION_TARGET", string(TargetSNS), env.ParseNonEmptyString)),
	}

	switch cfg.Target {
	case TargetSNS:
		topic, err := env.GetRequired("CENTRAL_SNS_TOPIC", env.ParseNonEmptyString)
		if err != nil {
			return nil, err
		}
		cfg.CentralTopic = topic

		account, err := env.GetRequired("CENTRAL_ACCOUNT_NUMBER", env.ParseAccountID)
		if err != nil {
			return nil, err
		}
		cfg.CentralAccount = account

	case TargetEventBridge:
		bus, err := env.GetRequired("EVENT_BUS_NAME", env.ParseNonEmptyString)
		if err != nil {
			return nil, err
		}
		cfg.EventBusName = bus

	default:
		return nil, fmt.Errorf("invalid notification target: %s", cfg.Target)
	}

	return cfg, nil
}

func LoadPartitionConfig() (*PartitionConfig, error) {
	region, err := env.GetRequired("AWS_REGION", env.ParseNonEmptyString)
	if err != nil {
		return nil, err
	}

	catalogs, err := env.GetRequired("CATALOGS", env.ParseCSV)
	if err != nil {
		return nil, err
	}

	return &PartitionConfig{
		AWSRegion: region,
		Database:  env.Get("GLUE_DATABASE", DefaultGlueDatabase, env.ParseNonEmptyString),
		Catalogs:  catalogs,
	}, nil
}

func loadDefinitions() Definitions {
	return Definitions{
		Path:    env.Get("DEFINITIONS_PATH", DefaultDefinitionsPath, env.ParseNonEmptyString),
		Archive: env.Get("DEFINITIONS_ARCHIVE", DefaultArchive, env.ParseNonEmptyString),
		Bucket:  env.Get("DEFINITIONS_BUCKET", "", env.ParseString),
		Key:     env.Get("DEFINITIONS_KEY", DefaultArchive, env.ParseNonEmptyString),
	}
}
