package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/signature"
)

func TestTesterSendsSignedSample(t *testing.T) {
	var receivedBody []byte
	var receivedSig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		receivedSig = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := newTestSubscription(srv.URL)
	tester := delivery.NewTester(newTestSender())

	res, err := tester.Send(context.Background(), sub, "response.submitted")
	if err != nil {
		t.Fatal(err)
	}

	if !res.Success || res.StatusCode != 200 {
		t.Fatalf("test delivery should succeed, got success=%v status=%d", res.Success, res.StatusCode)
	}
	if res.DeliveryID == "" {
		t.Fatal("test delivery should report its delivery ID")
	}
	if !signature.Verify(receivedBody, sub.Secret, receivedSig) {
		t.Fatal("test payload must be signed like a real delivery")
	}

	var doc map[string]any
	if err := json.Unmarshal(receivedBody, &doc); err != nil {
		t.Fatalf("test payload is not valid JSON: %v", err)
	}
	if doc["event"] != "response.submitted" {
		t.Fatalf("payload event = %v", doc["event"])
	}
	if _, ok := doc["response"]; !ok {
		t.Fatal("response.* test payload should carry a sample response")
	}
}

func TestTesterSurveyEventHasNoResponse(t *testing.T) {
	var receivedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := newTestSubscription(srv.URL)
	tester := delivery.NewTester(newTestSender())

	if _, err := tester.Send(context.Background(), sub, "survey.published"); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(receivedBody, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["response"]; ok {
		t.Fatal("survey.* test payload must not carry a response")
	}
}

func TestTesterReportsFailureWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sub := newTestSubscription(srv.URL)
	tester := delivery.NewTester(newTestSender())

	res, err := tester.Send(context.Background(), sub, "response.submitted")
	if err != nil {
		t.Fatal(err)
	}
	// A failing subscriber is a result to report, not an error: test
	// deliveries are fire-and-observe.
	if res.Success {
		t.Fatal("503 must not count as success")
	}
	if res.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", res.StatusCode)
	}
}
