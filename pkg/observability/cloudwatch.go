package observability

import (
	"context"
	"sync"
	"time"

	"tablegrid/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// maxDatums is the PutMetricData limit per call
const maxDatums = 1000

// CloudWatchClient is the subset of *cloudwatch.Client used here
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics buffers submit and row datapoints and ships them on Flush.
// Cache hits are left to Prometheus.
type CloudWatchMetrics struct {
	namespace string
	table     string
	client    CloudWatchClient
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

var _ ports.Metrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a new CloudWatch recorder
func NewCloudWatchMetrics(namespace, table string, client CloudWatchClient, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		namespace: namespace,
		table:     table,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *CloudWatchMetrics) RecordCacheHit(string)  {}
func (m *CloudWatchMetrics) RecordCacheMiss(string) {}

func (m *CloudWatchMetrics) RecordRowOperation(op string, success bool) {
	m.add(types.MetricDatum{
		MetricName: aws.String("RowOperation"),
		Dimensions: []types.Dimension{
			m.tableDimension(),
			{Name: aws.String("Operation"), Value: aws.String(op)},
			{Name: aws.String("Status"), Value: aws.String(status(success))},
		},
		Value:     aws.Float64(1),
		Unit:      types.StandardUnitCount,
		Timestamp: aws.Time(m.now()),
	})
}

func (m *CloudWatchMetrics) RecordSubmit(outcome string, d time.Duration) {
	dims := []types.Dimension{
		m.tableDimension(),
		{Name: aws.String("Outcome"), Value: aws.String(outcome)},
	}
	m.add(
		types.MetricDatum{
			MetricName: aws.String("Submit"),
			Dimensions: dims,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(m.now()),
		},
		types.MetricDatum{
			MetricName: aws.String("SubmitLatency"),
			Dimensions: dims,
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(m.now()),
		},
	)
}

func (m *CloudWatchMetrics) tableDimension() types.Dimension {
	return types.Dimension{Name: aws.String("Table"), Value: aws.String(m.table)}
}

func (m *CloudWatchMetrics) add(datums ...types.MetricDatum) {
	m.mu.Lock()
	m.pending = append(m.pending, datums...)
	m.mu.Unlock()
}

// Flush sends everything buffered so far. Datapoints of a failed call are dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	var firstErr error
	for start := 0; start < len(pending); start += maxDatums {
		end := min(start+maxDatums, len(pending))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: pending[start:end],
		})
		if err != nil {
			m.logger.Warn("Failed to send metrics", zap.Int("datums", end-start), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run flushes every interval until ctx is done, then flushes once more
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}
