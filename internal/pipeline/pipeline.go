package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// BatchExtractor reads up to batchSize alert requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer answers one alert request with a serialized report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader publishes multiple reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Backoff between failed extract or load attempts.
const (
	initialBackoff  = 200 * time.Millisecond
	maxBackoffDelay = 5 * time.Second
)

// Pipeline consumes alert requests in batches, answers each one through a
// Transformer, and publishes the reports. Requests within a batch are
// answered concurrently; reports are published in request order.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	concurrency int
}

// New creates a Pipeline. concurrency bounds how many requests of a batch
// are answered at once; values below 1 are treated as 1.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize, concurrency int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		concurrency: max(concurrency, 1),
	}
}

// CheckReadiness returns nil once the pipeline has published at least one report.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any reports yet")
	}
	return nil
}

// Run consumes requests until the context is cancelled. It returns nil on
// cancellation; extract and load failures are retried with backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "concurrency", p.concurrency)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		if !p.step(ctx, &backoff) {
			break
		}
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step handles one batch. It returns false when the pipeline should stop.
func (p *Pipeline) step(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	requests, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.wait(ctx, backoff)
	}
	if len(requests) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))
	*backoff = initialBackoff

	reports, answered := p.answer(ctx, requests)
	if len(reports) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(reports))
		// Offsets stay uncommitted so the requests are redelivered.
		return p.wait(ctx, backoff)
	}

	p.metrics.MessagesProduced.Add(float64(len(reports)))
	for _, raw := range answered {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// answer transforms every request with at most p.concurrency in flight.
// Rejected requests are logged, counted, and committed immediately. The
// returned reports and their source requests keep batch order.
func (p *Pipeline) answer(ctx context.Context, requests []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	type result struct {
		out domain.OutputEvent
		err error
	}
	results := make([]result, len(requests))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, raw := range requests {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()
			out, err := p.transformer.Transform(ctx, raw)
			results[i] = result{out: out, err: err}
		})
	}
	wg.Wait()

	reports := make([]domain.OutputEvent, 0, len(requests))
	answered := make([]domain.RawEvent, 0, len(requests))
	for i, r := range results {
		raw := requests[i]
		if r.err != nil {
			p.logger.Warn("alert request rejected, skipping message",
				"error", r.err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		reports = append(reports, r.out)
		answered = append(answered, raw)
	}
	return reports, answered
}

// wait sleeps for the current backoff and doubles it up to maxBackoffDelay.
// It returns false if the context ends first.
func (p *Pipeline) wait(ctx context.Context, backoff *time.Duration) bool {
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = min(*backoff*2, maxBackoffDelay)
	return true
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
