// Package partition registers Glue catalog partitions for stream deliveries landing in S3.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/partition")

// ErrInvalidKey is returned for object keys outside the delivery layout.
var ErrInvalidKey = errors.New("invalid delivery key")

const metricsPrefix = "metrics"

// GlueAPI defines the Glue operations required for registering partitions.
type GlueAPI interface {
	GetTable(
		ctx context.Context,
		params *glue.GetTableInput,
		optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)

	GetPartitions(
		ctx context.Context,
		params *glue.GetPartitionsInput,
		optFns ...func(*glue.Options)) (*glue.GetPartitionsOutput, error)

	CreatePartition(
		ctx context.Context,
		params *glue.CreatePartitionInput,
		optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error)
}

// Partition is the table and hourly partition a delivered object belongs to.
type Partition struct {
	Table  string
	Region string
	Year   string
	Month  string
	Day    string
	Hour   string
}

// ParseKey maps an S3 object key to its partition. Metric deliveries are laid out as
// metrics/<frequency>/<region>/<yyyy>/<MM>/<dd>/<HH>/... and stored per frequency in
// table metrics_<frequency>; anything else as <table>/<region>/<yyyy>/<MM>/<dd>/<HH>/...
func ParseKey(key string) (Partition, error) {
	unescaped, err := url.QueryUnescape(key)
	if err != nil {
		return Partition{}, fmt.Errorf("%w %q: %w", ErrInvalidKey, key, err)
	}

	parts := strings.Split(unescaped, "/")

	var p Partition
	if parts[0] == metricsPrefix {
		if len(parts) < 7 {
			return Partition{}, fmt.Errorf("%w %q", ErrInvalidKey, key)
		}
		p.Table = parts[0] + "_" + parts[1]
		parts = parts[2:]
	} else {
		if len(parts) < 6 {
			return Partition{}, fmt.Errorf("%w %q", ErrInvalidKey, key)
		}
		p.Table = parts[0]
		parts = parts[1:]
	}

	p.Region, p.Year, p.Month, p.Day, p.Hour = parts[0], parts[1], parts[2], parts[3], parts[4]

	for _, v := range []string{p.Year, p.Month, p.Day, p.Hour} {
		if !isDigits(v) {
			return Partition{}, fmt.Errorf("%w %q: %q is not numeric", ErrInvalidKey, key, v)
		}
	}
	if p.Table == "" || p.Region == "" || strings.ContainsRune(p.Region, '\'') {
		return Partition{}, fmt.Errorf("%w %q", ErrInvalidKey, key)
	}

	return p, nil
}

// Values returns the partition values in column order.
func (p Partition) Values() []string {
	return []string{p.Region, p.Year, p.Month, p.Day, p.Hour}
}

// Expression returns the GetPartitions filter selecting exactly this partition.
func (p Partition) Expression() string {
	return fmt.Sprintf("region='%s' and year=%s and month=%s and day=%s and hour=%s",
		p.Region, p.Year, p.Month, p.Day, p.Hour)
}

// Location returns the partition location below the table location.
func (p Partition) Location(tableLocation string) string {
	return tableLocation + strings.Join(p.Values(), "/") + "/"
}

// Registrar creates missing partitions in every configured catalog.
type Registrar struct {
	glue     GlueAPI
	database string
	logger   *slog.Logger
}

func NewRegistrar(glue GlueAPI, database string, logger *slog.Logger) *Registrar {
	return &Registrar{
		glue:     glue,
		database: database,
		logger:   logger,
	}
}

// Register ensures the partition of key exists in each catalog and returns the
// number of partitions created. Existing partitions are left untouched.
func (r *Registrar) Register(ctx context.Context, key string, catalogs []string) (int, error) {
	ctx, span := tracer.Start(ctx, "partition.register")
	defer span.End()

	p, err := ParseKey(key)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(
		attribute.String("glue.database", r.database),
		attribute.String("glue.table", p.Table),
		attribute.String("glue.expression", p.Expression()),
	)

	table, err := r.glue.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(r.database),
		Name:         aws.String(p.Table),
	})
	if err != nil {
		return 0, fmt.Errorf("cannot get table %q: %w", p.Table, err)
	}
	if table.Table == nil || table.Table.StorageDescriptor == nil {
		return 0, fmt.Errorf("table %q has no storage descriptor", p.Table)
	}
	sd := table.Table.StorageDescriptor

	input := &types.PartitionInput{
		Values: p.Values(),
		StorageDescriptor: &types.StorageDescriptor{
			Location:     aws.String(p.Location(aws.ToString(sd.Location))),
			InputFormat:  sd.InputFormat,
			OutputFormat: sd.OutputFormat,
			SerdeInfo:    sd.SerdeInfo,
		},
	}

	created := 0
	for _, catalog := range catalogs {
		ok, err := r.ensure(ctx, catalog, p, input)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	span.SetAttributes(attribute.Int("glue.created", created))
	return created, nil
}

func (r *Registrar) ensure(ctx context.Context, catalog string, p Partition, input *types.PartitionInput) (bool, error) {
	existing, err := r.glue.GetPartitions(ctx, &glue.GetPartitionsInput{
		CatalogId:    aws.String(catalog),
		DatabaseName: aws.String(r.database),
		TableName:    aws.String(p.Table),
		Expression:   aws.String(p.Expression()),
	})
	if err != nil {
		return false, fmt.Errorf("cannot get partitions of %q in catalog %s: %w", p.Table, catalog, err)
	}
	if len(existing.Partitions) > 0 {
		return false, nil
	}

	_, err = r.glue.CreatePartition(ctx, &glue.CreatePartitionInput{
		CatalogId:      aws.String(catalog),
		DatabaseName:   aws.String(r.database),
		TableName:      aws.String(p.Table),
		PartitionInput: input,
	})
	if err != nil {
		var exists *types.AlreadyExistsException
		if errors.As(err, &exists) {
			return false, nil
		}
		return false, fmt.Errorf("cannot create partition of %q in catalog %s: %w", p.Table, catalog, err)
	}

	r.logger.InfoContext(ctx, "partition created",
		slog.String("catalog", catalog),
		slog.String("table", p.Table),
		slog.String("location", aws.ToString(input.StorageDescriptor.Location)))

	return true, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
