package monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BucketCounter returns the number of submissions in each status bucket.
type BucketCounter func(ctx context.Context) (map[string]int64, error)

// RefreshBucketGauge runs one refresh of SubmissionsByBucket.
func RefreshBucketGauge(ctx context.Context, count BucketCounter, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	counts, err := count(ctx)
	if err != nil {
		log.Warn("refresh submission gauge failed", zap.Error(err))
		return
	}
	for bucket, n := range counts {
		SubmissionsByBucket.WithLabelValues(bucket).Set(float64(n))
	}
}

// StartGaugeRefresher refreshes the gauge once and then on every tick of
// schedule. The caller stops the returned cron on shutdown.
func StartGaugeRefresher(schedule string, count BucketCounter, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		RefreshBucketGauge(context.Background(), count, log)
	}); err != nil {
		return nil, err
	}

	RefreshBucketGauge(context.Background(), count, log)
	c.Start()
	log.Info("submission gauge refresher started", zap.String("schedule", schedule))
	return c, nil
}
