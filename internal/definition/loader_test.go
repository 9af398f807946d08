package definition

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

const lambdaDefinition = `
metric_set:
  name: lambda
  schedule: rate(1 day)
  metrics:
    - id: invocations
      namespace: AWS/Lambda
      name: Invocations
      frequency: day
      statistic: Sum
      dimensions:
        - name: FunctionName
          value: hello_world
      metadata:
        - name: function
          value: hello_world
      dashboard:
        name: lambda
        category: compute
    - id: errors
      namespace: AWS/Lambda
      name: Errors
      frequency: hour
      statistic: Sum
      period: 1800
      dimensions:
        - name: FunctionName
          value: hello_world
sla_set:
  name: lambda-slas
  slas:
    - metric: invocations
      threshold: 1
      comparison_operator: LessThanThreshold
      severity: "2"
      short_description: Lambda was not invoked
      details: hello_world had no invocations today
      sns_enabled: true
`

const metricsOnlyDefinition = `
metric_set:
  name: dynamodb
  metrics:
    - id: reads
      namespace: AWS/DynamoDB
      name: ConsumedReadCapacityUnits
      frequency: minute
      statistic: Sum
      dimensions:
        - name: TableName
          value: orders
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDefinitionsFS() fstest.MapFS {
	return fstest.MapFS{
		"account_123/lambda/functions.yaml":  {Data: []byte(lambdaDefinition)},
		"account_123/dynamodb.yml":           {Data: []byte(metricsOnlyDefinition)},
		"account_123/README.md":              {Data: []byte("ignored")},
		"account_456/lambda/functions.yaml":  {Data: []byte(metricsOnlyDefinition)},
		"account_1234/lambda/functions.yaml": {Data: []byte(lambdaDefinition)},
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("functions.yaml", []byte(lambdaDefinition))
	require.NoError(t, err)

	require.NotNil(t, src.MetricSet)
	assert.Equal(t, "lambda", src.MetricSet.Name)
	assert.Equal(t, "rate(1 day)", src.MetricSet.Schedule)
	require.Len(t, src.MetricSet.Metrics, 2)

	invocations := src.MetricSet.Metrics[0]
	assert.Equal(t, "awslambdainvocationsdayfunctionnamehello_world", invocations.UniqueID())
	assert.Equal(t, int32(86400), invocations.Period)
	assert.Equal(t, "lambda", invocations.MetricSet)
	assert.Equal(t, dataquality.Dashboard{Name: "lambda", Category: "compute"}, invocations.Dashboard)
	assert.Equal(t, int32(1800), src.MetricSet.Metrics[1].Period)

	require.NotNil(t, src.SLASet)
	require.Len(t, src.SLASet.SLAs, 1)

	sla := src.SLASet.SLAs[0]
	assert.Equal(t, invocations, sla.Metric)
	assert.Equal(t, types.ComparisonOperatorLessThanThreshold, sla.ComparisonOperator)
	assert.Equal(t, "2", sla.Severity)
	assert.Equal(t, dataquality.DefaultTreatMissingData, sla.TreatMissingData)
	assert.Equal(t, int32(1), sla.EvaluationPeriods)
	assert.True(t, sla.SNSEnabled)
	assert.Equal(t, "lambda-slas", sla.SLASet)
}

func TestParseSource_Business(t *testing.T) {
	doc := `
metric_set:
  name: sales
  metrics:
    - id: orders
      namespace: DataQuality/Business
      name: OrderCount
      frequency: day
      statistic: Sum
      business:
        query: SELECT count(*) FROM orders
        dataset: {catalog: "999", database: sales, table: orders}
        reference_datasets:
          - {database: sales, table: customers, alias: c}
`
	src, err := ParseSource("sales.yaml", []byte(doc))
	require.NoError(t, err)

	m := src.MetricSet.Metrics[0]
	require.True(t, m.IsBusiness())
	assert.Equal(t, "SELECT count(*) FROM orders", m.Business.Query)
	assert.Equal(t, "orders", m.Business.Dataset.Alias)
	assert.Equal(t, []dataquality.Dataset{{Database: "sales", Table: "customers", Alias: "c"}}, m.Business.ReferenceDatasets)
	assert.Nil(t, src.SLASet)
}

func TestParseSource_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "missing namespace",
			doc:  "metric_set:\n  name: x\n  metrics:\n    - {id: a, name: n, frequency: day, statistic: Sum}\n",
		},
		{
			name: "missing set name",
			doc:  "metric_set:\n  metrics: []\n",
		},
		{
			name:    "unknown metric reference",
			doc:     "sla_set:\n  slas:\n    - {metric: nope, comparison_operator: LessThanThreshold}\n",
			wantErr: ErrUnknownMetricRef,
		},
		{
			name: "not yaml",
			doc:  "metric_set: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSource("bad.yaml", []byte(tt.doc))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseSource_FrequencyNotValidated(t *testing.T) {
	doc := "metric_set:\n  name: x\n  metrics:\n    - {id: a, namespace: ns, name: n, frequency: weekly, statistic: Sum}\n"

	src, err := ParseSource("weekly.yaml", []byte(doc))
	require.NoError(t, err)
	assert.Zero(t, src.MetricSet.Metrics[0].Period)
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader(newDefinitionsFS(), discardLogger())

	def, err := loader.Load(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", def.Account)
	require.Len(t, def.MetricSets, 2)
	// account_123/dynamodb.yml sorts before account_123/lambda/functions.yaml
	assert.Equal(t, "dynamodb", def.MetricSets[0].Name)
	assert.Equal(t, "lambda", def.MetricSets[1].Name)
	require.Len(t, def.SLASets, 1)
	assert.Len(t, def.SLAs(), 1)
}

func TestLoader_LoadDoesNotMatchAccountPrefix(t *testing.T) {
	loader := NewLoader(newDefinitionsFS(), discardLogger())

	def, err := loader.Load(context.Background(), "12")
	require.NoError(t, err)
	assert.Empty(t, def.MetricSets)
}

func TestLoader_LoadIsRebuiltEachCall(t *testing.T) {
	loader := NewLoader(newDefinitionsFS(), discardLogger())

	first, err := loader.Load(context.Background(), "123")
	require.NoError(t, err)
	first.MetricSets[0].Add(dataquality.NewMetric("ns", "extra", dataquality.FrequencyDay, "Sum"))

	second, err := loader.Load(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, second.MetricSets[0].Metrics, 1)
}

func TestLoader_LoadInvalidDocument(t *testing.T) {
	fsys := fstest.MapFS{
		"account_1/bad.yaml": {Data: []byte("metric_set:\n  metrics: []\n")},
	}

	_, err := NewLoader(fsys, discardLogger()).Load(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account_1/bad.yaml")
}

func zipDefinitions(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestLoader_ArchiveFallback(t *testing.T) {
	data := zipDefinitions(t, map[string]string{
		"definitions/account_789/lambda.yaml": lambdaDefinition,
	})
	path := filepath.Join(t.TempDir(), "definitions.zip")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loader := NewLoader(newDefinitionsFS(), discardLogger(), WithArchive(ZipFile(path)))

	def, err := loader.Load(context.Background(), "789")
	require.NoError(t, err)
	require.Len(t, def.MetricSets, 1)
	assert.Equal(t, "lambda", def.MetricSets[0].Name)

	def, err = loader.Load(context.Background(), "000")
	require.NoError(t, err)
	assert.Empty(t, def.MetricSets)
}

func TestS3Archive_Open(t *testing.T) {
	mockS3 := new(S3APIMock)
	data := zipDefinitions(t, map[string]string{
		"definitions/account_789/dynamodb.yaml": metricsOnlyDefinition,
	})

	mockS3.On("GetObject",
		mock.Anything,
		&s3.GetObjectInput{Bucket: aws.String("artifacts"), Key: aws.String("definitions.zip")},
		mock.AnythingOfType("[]func(*s3.Options)"),
	).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil).Once()

	loader := NewLoader(nil, discardLogger(), WithArchive(NewS3Archive(mockS3, "artifacts", "definitions.zip")))

	def, err := loader.Load(context.Background(), "789")
	require.NoError(t, err)
	require.Len(t, def.MetricSets, 1)
	assert.Equal(t, "dynamodb", def.MetricSets[0].Name)
	mockS3.AssertExpectations(t)
}

func TestS3Archive_OpenError(t *testing.T) {
	mockS3 := new(S3APIMock)
	expectedError := errors.New("access denied")

	mockS3.On("GetObject", mock.Anything, mock.Anything, mock.Anything).
		Return((*s3.GetObjectOutput)(nil), expectedError).Once()

	loader := NewLoader(fstest.MapFS{}, discardLogger(), WithArchive(NewS3Archive(mockS3, "artifacts", "definitions.zip")))

	_, err := loader.Load(context.Background(), "789")
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedError)
	mockS3.AssertExpectations(t)
}

func TestNewArchive(t *testing.T) {
	mockS3 := new(S3APIMock)

	assert.Equal(t, ZipFile("definitions.zip"), NewArchive(mockS3, "", "ignored", "definitions.zip"))
	assert.Equal(t, NewS3Archive(mockS3, "artifacts", "defs.zip"), NewArchive(mockS3, "artifacts", "defs.zip", "definitions.zip"))
}
