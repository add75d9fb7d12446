package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PollerConfig holds retry poller configuration.
type PollerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	ClaimLease   time.Duration
	Concurrency  int
}

// Poller periodically claims due retry rows from the attempt log and
// resubmits them through the executor. Claiming uses a lease so overlapping
// sweeps, whether from a slow run or a second process, never pick up the
// same row twice.
type Poller struct {
	log      Store
	executor *Executor
	config   PollerConfig
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a retry poller.
func NewPoller(log Store, executor *Executor, cfg PollerConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Poller{
		log:      log,
		executor: executor,
		config:   cfg,
		logger:   logger,
	}
}

// Start begins the background sweep loop.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx)
	}()
}

// Stop cancels the sweep loop and waits for in-flight resubmissions.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.ErrorContext(ctx, "retry sweep failed", "error", err)
			}
		}
	}
}

// RunOnce claims one batch of due retries and resubmits them, returning how
// many were processed. Each row is handled in isolation: one bad row never
// blocks the rest of the batch.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	batch, err := p.log.ClaimDue(ctx, time.Now().UTC(), p.config.ClaimLease, p.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	for _, a := range batch {
		select {
		case <-ctx.Done():
			wg.Wait()
			return 0, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		p.wg.Add(1)
		go func(prev *Attempt) {
			defer wg.Done()
			defer p.wg.Done()
			defer func() { <-sem }()

			if _, err := p.executor.Resubmit(ctx, prev); err != nil {
				p.logger.ErrorContext(ctx, "resubmit failed",
					"attempt_id", prev.ID, "webhook_id", prev.WebhookID,
					"delivery_id", prev.DeliveryID, "error", err)
			}
		}(a)
	}

	wg.Wait()
	return len(batch), nil
}
