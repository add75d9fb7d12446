package hookline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/observability"
	"github.com/formhive/hookline/store/memory"
	"github.com/formhive/hookline/subscription"
)

func ctx() context.Context { return context.Background() }

func surveySource() event.SurveySource {
	return event.SurveySourceFunc(func(_ context.Context, surveyID string) (*event.Survey, error) {
		if surveyID != "srv_1" {
			return nil, hookline.ErrSurveyNotFound
		}
		return &event.Survey{ID: "srv_1", Name: "Customer Feedback", Status: "published"}, nil
	})
}

func setup(t *testing.T) (*hookline.Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	e, err := hookline.New(
		hookline.WithStore(s),
		hookline.WithSurveySource(surveySource()),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Catalog().RegisterBuiltins(ctx()); err != nil {
		t.Fatal(err)
	}
	return e, s
}

func createSubscription(t *testing.T, e *hookline.Engine, url string, events ...event.Type) *subscription.Subscription {
	t.Helper()
	sub, err := e.Subscriptions().Create(ctx(), "srv_1", subscription.Input{
		URL:    url,
		Name:   "test hook",
		Events: events,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func sampleResponse() *event.Response {
	return &event.Response{
		ID:         "resp_1",
		IsComplete: true,
		Answers:    map[string]any{"q_1": "yes"},
	}
}

func TestNewRequiresStore(t *testing.T) {
	_, err := hookline.New(hookline.WithSurveySource(surveySource()))
	if !errors.Is(err, hookline.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestNewRequiresSurveySource(t *testing.T) {
	_, err := hookline.New(hookline.WithStore(memory.New()))
	if !errors.Is(err, hookline.ErrNoSurveySource) {
		t.Fatalf("expected ErrNoSurveySource, got %v", err)
	}
}

func TestDispatchFansOutToMatchingSubscriptions(t *testing.T) {
	hits := make(chan string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, s := setup(t)
	subA := createSubscription(t, e, srv.URL, event.ResponseSubmitted)
	subB := createSubscription(t, e, srv.URL, event.SurveyClosed) // wrong event

	e.Dispatch(ctx(), "srv_1", event.ResponseSubmitted, sampleResponse())
	e.Stop()

	if got := len(hits); got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}

	rowsA, err := s.ListByWebhook(ctx(), subA.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rowsA) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(rowsA))
	}
	if !rowsA[0].Success || rowsA[0].Attempt != 1 {
		t.Fatalf("expected successful first attempt, got %+v", rowsA[0])
	}

	rowsB, _ := s.ListByWebhook(ctx(), subB.ID)
	if len(rowsB) != 0 {
		t.Fatalf("expected no rows for unmatched subscription, got %d", len(rowsB))
	}
}

func TestDispatchMissingSurveyIsSilent(t *testing.T) {
	e, s := setup(t)
	sub := createSubscription(t, e, "http://127.0.0.1:1/hook", event.ResponseSubmitted)

	e.Dispatch(ctx(), "srv_missing", event.ResponseSubmitted, sampleResponse())
	e.Stop()

	rows, _ := s.ListByWebhook(ctx(), sub.ID)
	if len(rows) != 0 {
		t.Fatalf("expected no rows when survey is missing, got %d", len(rows))
	}
}

func TestDispatchFailureWritesRetryableRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, s := setup(t)
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	e.Dispatch(ctx(), "srv_1", event.ResponseSubmitted, sampleResponse())
	e.Stop()

	rows, err := s.ListByWebhook(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	a := rows[0]
	if a.Success {
		t.Fatal("expected failure")
	}
	if !a.CanRetry || a.NextRetryAt == nil {
		t.Fatalf("expected retryable row with NextRetryAt, got %+v", a)
	}
}

func TestTriggerForResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, _ := setup(t)
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	a, err := e.TriggerForResponse(ctx(), sub.ID, sampleResponse())
	if err != nil {
		t.Fatal(err)
	}
	if a.Event != event.ResponseSubmitted {
		t.Fatalf("expected response.submitted, got %s", a.Event)
	}
	if a.Attempt != 1 || !a.Success {
		t.Fatalf("expected successful first attempt, got %+v", a)
	}
	if a.ResponseID != "resp_1" {
		t.Fatalf("expected response ID on row, got %q", a.ResponseID)
	}
}

func TestTriggerForResponseUnknownWebhook(t *testing.T) {
	e, _ := setup(t)

	badID := createSubscription(t, e, "http://127.0.0.1:1/hook", event.ResponseSubmitted).ID
	if err := e.Subscriptions().Delete(ctx(), badID); err != nil {
		t.Fatal(err)
	}

	_, err := e.TriggerForResponse(ctx(), badID, sampleResponse())
	if !errors.Is(err, hookline.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestTestWebhookWritesNoRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, s := setup(t)
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	res, err := e.TestWebhook(ctx(), sub.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.StatusCode != http.StatusOK {
		t.Fatalf("expected successful test delivery, got %+v", res)
	}
	if res.DeliveryID == "" {
		t.Fatal("expected delivery ID on test result")
	}

	rows, _ := s.ListByWebhook(ctx(), sub.ID)
	if len(rows) != 0 {
		t.Fatalf("test delivery must not write a row, got %d", len(rows))
	}
}

func TestRetryDelivery(t *testing.T) {
	var fail = true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, s := setup(t)
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	first, err := e.TriggerForResponse(ctx(), sub.ID, sampleResponse())
	if err != nil {
		t.Fatal(err)
	}
	if first.Success {
		t.Fatal("expected first attempt to fail")
	}

	fail = false
	second, err := e.RetryDelivery(ctx(), first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Success {
		t.Fatalf("expected retry to succeed, got %+v", second)
	}
	if second.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", second.Attempt)
	}
	if second.DeliveryID != first.DeliveryID {
		t.Fatal("retry must reuse the chain's delivery ID")
	}
	if second.RequestBody != first.RequestBody {
		t.Fatal("retry must reuse the stored request body")
	}

	// Retrying the successful row conflicts.
	if _, err := e.RetryDelivery(ctx(), second.ID); !errors.Is(err, hookline.ErrAlreadyDelivered) {
		t.Fatalf("expected ErrAlreadyDelivered, got %v", err)
	}

	rows, _ := s.ListByWebhook(ctx(), sub.ID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 immutable rows, got %d", len(rows))
	}
}

func TestDispatchRecordsMetrics(t *testing.T) {
	var fail = true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memory.New()
	m := observability.NewMetrics(prometheus.NewRegistry())
	e, err := hookline.New(
		hookline.WithStore(s),
		hookline.WithSurveySource(surveySource()),
		hookline.WithMetrics(m),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Catalog().RegisterBuiltins(ctx()); err != nil {
		t.Fatal(err)
	}
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	e.Dispatch(ctx(), "srv_1", event.ResponseSubmitted, sampleResponse())
	e.Stop()

	if got := testutil.ToFloat64(m.DispatchedTotal.WithLabelValues(string(event.ResponseSubmitted))); got != 1 {
		t.Fatalf("dispatched total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PendingRetries); got != 1 {
		t.Fatalf("pending retries after failed attempt = %v, want 1", got)
	}

	rows, err := s.ListByWebhook(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Success {
		t.Fatalf("expected 1 failed row, got %+v", rows)
	}

	fail = false
	if _, err := e.RetryDelivery(ctx(), rows[0].ID); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.PendingRetries); got != 0 {
		t.Fatalf("pending retries after successful retry = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("delivered")); got != 1 {
		t.Fatalf("delivered total = %v, want 1", got)
	}
}

func TestDeliveryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, _ := setup(t)
	sub := createSubscription(t, e, srv.URL, event.ResponseSubmitted)

	if _, err := e.TriggerForResponse(ctx(), sub.ID, sampleResponse()); err != nil {
		t.Fatal(err)
	}

	sum, err := e.DeliveryStatus(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 1 || sum.Successful != 1 {
		t.Fatalf("expected 1/1, got %+v", sum)
	}
	if sum.SuccessRate != 100 {
		t.Fatalf("expected 100%% success rate, got %v", sum.SuccessRate)
	}
	if sum.LastSuccess == nil {
		t.Fatal("expected LastSuccess timestamp")
	}
}
