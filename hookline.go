package hookline

import (
	"context"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/payload"
	"github.com/formhive/hookline/status"
	"github.com/formhive/hookline/store"
	"github.com/formhive/hookline/subscription"
)

// wireServices initializes the internal services after options have been applied.
func (e *Engine) wireServices() {
	e.catalog = catalog.NewCatalog(e.store, e.logger)

	e.subs = subscription.NewService(e.store, e.surveys, e.catalog, e.config.MaxRetries, e.logger)

	e.builder = payload.NewBuilder()

	sender := delivery.NewSender(e.config.RequestTimeout, e.config.UserAgent, int64(e.config.MaxResponseBody))

	e.executor = delivery.NewExecutor(e.store, e.store, delivery.ExecutorConfig{
		Sender:     sender,
		Backoff:    delivery.NewBackoff(e.config.Backoff),
		MaxRetries: e.config.MaxRetries,
		Metrics:    e.metrics,
		Tracer:     e.tracer,
		Logger:     e.logger,
	})

	e.poller = delivery.NewPoller(e.store, e.executor, delivery.PollerConfig{
		PollInterval: e.config.PollInterval,
		BatchSize:    e.config.PollBatchSize,
		ClaimLease:   e.config.ClaimLease,
		Concurrency:  e.config.Concurrency,
	}, e.logger)

	e.tester = delivery.NewTester(sender)

	e.status = status.NewAggregator(e.store)
}

// Start begins the background retry poller.
func (e *Engine) Start(ctx context.Context) {
	e.poller.Start(ctx)
}

// Stop shuts down the retry poller and waits for in-flight dispatches.
func (e *Engine) Stop() {
	e.poller.Stop()
	e.dispatches.Wait()
}

// Dispatch fans out a survey lifecycle event to every matching active
// subscription. It is fire-and-forget: each delivery runs in its own
// goroutine and no failure ever reaches the caller. The event path must
// never disturb the host operation that raised it.
//
// resp carries the response snapshot for response.* events and is nil for
// survey.* events.
func (e *Engine) Dispatch(ctx context.Context, surveyID string, evt event.Type, resp *event.Response) {
	survey, err := e.surveys.Survey(ctx, surveyID)
	if err != nil {
		e.logger.WarnContext(ctx, "dispatch: survey lookup failed",
			"survey_id", surveyID, "event", evt, "error", err)
		return
	}

	matches, err := e.store.Matching(ctx, surveyID, evt)
	if err != nil {
		e.logger.ErrorContext(ctx, "dispatch: subscription match failed",
			"survey_id", surveyID, "event", evt, "error", err)
		return
	}

	if e.metrics != nil {
		e.metrics.DispatchedTotal.WithLabelValues(string(evt)).Inc()
	}

	if len(matches) == 0 {
		return
	}

	// Deliveries outlive the host operation's request context.
	bg := context.WithoutCancel(ctx)

	for _, sub := range matches {
		e.dispatches.Add(1)
		go func(sub *subscription.Subscription) {
			defer e.dispatches.Done()
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error("dispatch: delivery panic",
						"webhook_id", sub.ID, "event", evt, "panic", rec)
				}
			}()
			e.deliver(bg, sub, survey, resp, evt)
		}(sub)
	}
}

// deliver builds, signs, and sends one new delivery chain's first attempt.
func (e *Engine) deliver(ctx context.Context, sub *subscription.Subscription, survey *event.Survey, resp *event.Response, evt event.Type) {
	env, err := e.builder.Build(evt, survey, resp, payload.Options{
		IncludeMetadata:     sub.IncludeMetadata,
		UseQuestionMappings: sub.UseQuestionMappings,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "dispatch: payload build failed",
			"webhook_id", sub.ID, "event", evt, "error", err)
		return
	}

	var respID string
	if resp != nil {
		respID = resp.ID
	}

	if _, err := e.executor.Execute(ctx, delivery.Request{
		Sub:        sub,
		Body:       env.Body,
		DeliveryID: env.DeliveryID,
		Event:      evt,
		SurveyID:   survey.ID,
		ResponseID: respID,
		Attempt:    1,
	}); err != nil {
		e.logger.ErrorContext(ctx, "dispatch: delivery failed",
			"webhook_id", sub.ID, "delivery_id", env.DeliveryID, "error", err)
	}
}

// TriggerForResponse manually delivers a response.submitted payload for one
// response to one subscription, starting a fresh chain at attempt 1. Unlike
// Dispatch it is synchronous and reports its outcome.
func (e *Engine) TriggerForResponse(ctx context.Context, whID id.ID, resp *event.Response) (*delivery.Attempt, error) {
	sub, err := e.store.GetSubscription(ctx, whID)
	if err != nil {
		return nil, err
	}

	survey, err := e.surveys.Survey(ctx, sub.SurveyID)
	if err != nil {
		return nil, err
	}

	env, err := e.builder.Build(event.ResponseSubmitted, survey, resp, payload.Options{
		IncludeMetadata:     sub.IncludeMetadata,
		UseQuestionMappings: sub.UseQuestionMappings,
	})
	if err != nil {
		return nil, err
	}

	return e.executor.Execute(ctx, delivery.Request{
		Sub:        sub,
		Body:       env.Body,
		DeliveryID: env.DeliveryID,
		Event:      event.ResponseSubmitted,
		SurveyID:   survey.ID,
		ResponseID: resp.ID,
		Attempt:    1,
	})
}

// TestWebhook sends a synthetic signed payload to a subscription so the
// subscriber can verify endpoint and signature handling. No attempt row is
// written and the send is never retried. When evt is empty the first
// subscribed event type is used.
func (e *Engine) TestWebhook(ctx context.Context, whID id.ID, evt event.Type) (*delivery.TestResult, error) {
	sub, err := e.store.GetSubscription(ctx, whID)
	if err != nil {
		return nil, err
	}

	if evt == "" && len(sub.Events) > 0 {
		evt = sub.Events[0]
	}

	return e.tester.Send(ctx, sub, evt)
}

// RetryDelivery manually re-sends a failed attempt, bypassing the backoff
// schedule. Retrying a successful attempt returns ErrAlreadyDelivered; a
// terminal failure may be retried, though the new row can be immediately
// terminal again if the chain is out of attempts.
func (e *Engine) RetryDelivery(ctx context.Context, attID id.ID) (*delivery.Attempt, error) {
	prev, err := e.store.GetAttempt(ctx, attID)
	if err != nil {
		return nil, err
	}
	if prev.Success {
		return nil, ErrAlreadyDelivered
	}
	return e.executor.Resubmit(ctx, prev)
}

// DeliveryStatus returns the per-subscription delivery rollup.
func (e *Engine) DeliveryStatus(ctx context.Context, whID id.ID) (*status.Summary, error) {
	return e.status.Summarize(ctx, whID)
}

// RegisterEventType registers a webhook event type definition in the catalog.
func (e *Engine) RegisterEventType(ctx context.Context, def catalog.Definition) (*catalog.EventType, error) {
	return e.catalog.RegisterType(ctx, def)
}

// Subscriptions returns the webhook subscription management service.
func (e *Engine) Subscriptions() *subscription.Service {
	return e.subs
}

// Catalog returns the event type catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Poller returns the retry poller for hosts that drive sweeps themselves.
func (e *Engine) Poller() *delivery.Poller {
	return e.poller
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}
