package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/api"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/store/memory"
)

// testServer creates a Handler backed by a memory store and returns the test
// server plus the engine behind it.
func testServer(t *testing.T) (*httptest.Server, *hookline.Engine) {
	t.Helper()

	e, err := hookline.New(
		hookline.WithStore(memory.New()),
		hookline.WithSurveySource(event.SurveySourceFunc(func(_ context.Context, surveyID string) (*event.Survey, error) {
			if surveyID != "srv_1" {
				return nil, hookline.ErrSurveyNotFound
			}
			return &event.Survey{ID: "srv_1", Name: "Customer Feedback", Status: "published"}, nil
		})),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Catalog().RegisterBuiltins(context.Background()); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(api.NewHandler(e, nil))
	t.Cleanup(srv.Close)
	return srv, e
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func createWebhook(t *testing.T, srv *httptest.Server, url string) (whID, secret string) {
	t.Helper()
	resp := doJSON(t, "POST", srv.URL+"/surveys/srv_1/webhooks", map[string]any{
		"url":    url,
		"name":   "crm sync",
		"events": []string{"response.submitted"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create webhook: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		Webhook map[string]any `json:"webhook"`
		Secret  string         `json:"secret"`
	}
	decodeBody(t, resp, &created)
	whID, _ = created.Webhook["id"].(string)
	if whID == "" {
		t.Fatal("expected non-empty webhook ID")
	}
	return whID, created.Secret
}

// --- Webhooks ---

func TestWebhooks_CRUD(t *testing.T) {
	srv, _ := testServer(t)

	whID, secret := createWebhook(t, srv, "https://example.com/hook")
	if secret == "" {
		t.Fatal("expected secret returned on creation")
	}

	// Get
	resp := doJSON(t, "GET", srv.URL+"/webhooks/"+whID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var got map[string]any
	decodeBody(t, resp, &got)
	if _, hasSecret := got["secret"]; hasSecret {
		t.Fatal("secret must not appear on plain reads")
	}

	// List
	resp = doJSON(t, "GET", srv.URL+"/surveys/srv_1/webhooks", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var subs []map[string]any
	decodeBody(t, resp, &subs)
	if len(subs) != 1 {
		t.Fatalf("expected 1 webhook, got %d", len(subs))
	}

	// Update
	resp = doJSON(t, "PUT", srv.URL+"/webhooks/"+whID, map[string]any{
		"url": "https://example.com/updated",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated map[string]any
	decodeBody(t, resp, &updated)
	if updated["url"] != "https://example.com/updated" {
		t.Fatalf("expected updated URL, got %v", updated["url"])
	}

	// Rotate secret
	resp = doJSON(t, "POST", srv.URL+"/webhooks/"+whID+"/rotate-secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotate: expected 200, got %d", resp.StatusCode)
	}
	var rotated map[string]string
	decodeBody(t, resp, &rotated)
	if rotated["secret"] == "" || rotated["secret"] == secret {
		t.Fatal("expected a fresh secret")
	}

	// Delete
	resp = doJSON(t, "DELETE", srv.URL+"/webhooks/"+whID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Get deleted → 404
	resp = doJSON(t, "GET", srv.URL+"/webhooks/"+whID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebhooks_CreateValidation(t *testing.T) {
	srv, _ := testServer(t)

	// Missing URL
	resp := doJSON(t, "POST", srv.URL+"/surveys/srv_1/webhooks", map[string]any{
		"events": []string{"response.submitted"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown event type
	resp = doJSON(t, "POST", srv.URL+"/surveys/srv_1/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"bogus.event"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown event, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown survey
	resp = doJSON(t, "POST", srv.URL+"/surveys/srv_missing/webhooks", map[string]any{
		"url":    "https://example.com/hook",
		"events": []string{"response.submitted"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown survey, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebhooks_InvalidID(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/webhooks/not-a-valid-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Test delivery / trigger / status ---

func TestWebhooks_TestDelivery(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	srv, _ := testServer(t)
	whID, _ := createWebhook(t, srv, target.URL)

	resp := doJSON(t, "POST", srv.URL+"/webhooks/"+whID+"/test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("test: expected 200, got %d", resp.StatusCode)
	}
	var res map[string]any
	decodeBody(t, resp, &res)
	if res["success"] != true {
		t.Fatalf("expected success, got %v", res)
	}

	// No log row.
	resp = doJSON(t, "GET", srv.URL+"/webhooks/"+whID+"/deliveries", nil)
	var rows []map[string]any
	decodeBody(t, resp, &rows)
	if len(rows) != 0 {
		t.Fatalf("test delivery must not be logged, got %d rows", len(rows))
	}
}

func TestWebhooks_TriggerAndRetryFlow(t *testing.T) {
	var fail = true
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	srv, _ := testServer(t)
	whID, _ := createWebhook(t, srv, target.URL)

	// Trigger against a failing subscriber.
	resp := doJSON(t, "POST", srv.URL+"/webhooks/"+whID+"/trigger", map[string]any{
		"response": map[string]any{
			"id":          "resp_1",
			"is_complete": true,
			"answers":     map[string]any{"q_1": "yes"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trigger: expected 200, got %d", resp.StatusCode)
	}
	var first map[string]any
	decodeBody(t, resp, &first)
	if first["success"] != false {
		t.Fatalf("expected failed attempt, got %v", first)
	}
	attID := first["id"].(string)

	// Manual retry against a recovered subscriber.
	fail = false
	resp = doJSON(t, "POST", srv.URL+"/deliveries/"+attID+"/retry", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", resp.StatusCode)
	}
	var second map[string]any
	decodeBody(t, resp, &second)
	if second["success"] != true {
		t.Fatalf("expected retry success, got %v", second)
	}

	// Retrying the delivered row conflicts.
	resp = doJSON(t, "POST", srv.URL+"/deliveries/"+second["id"].(string)+"/retry", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("retry delivered: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Status rollup reflects both rows.
	resp = doJSON(t, "GET", srv.URL+"/webhooks/"+whID+"/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}
	var sum map[string]any
	decodeBody(t, resp, &sum)
	if sum["total"] != float64(2) || sum["successful"] != float64(1) {
		t.Fatalf("expected 2 total / 1 successful, got %v", sum)
	}

	// The row list is newest-first.
	resp = doJSON(t, "GET", srv.URL+"/deliveries?webhook_id="+whID, nil)
	var rows []map[string]any
	decodeBody(t, resp, &rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["attempt"] != float64(2) {
		t.Fatalf("expected newest row first, got %v", rows[0])
	}
}

func TestWebhooks_TriggerRequiresResponse(t *testing.T) {
	srv, _ := testServer(t)
	whID, _ := createWebhook(t, srv, "https://example.com/hook")

	resp := doJSON(t, "POST", srv.URL+"/webhooks/"+whID+"/trigger", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Event types ---

func TestEventTypes_CRUD(t *testing.T) {
	srv, _ := testServer(t)

	// Builtins are pre-registered.
	resp := doJSON(t, "GET", srv.URL+"/event-types", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) < 6 {
		t.Fatalf("expected at least the 6 built-in types, got %d", len(list))
	}

	// Create a host-specific type.
	resp = doJSON(t, "POST", srv.URL+"/event-types", map[string]any{
		"name":        "survey.archived",
		"description": "Fired when a survey is archived",
		"group":       "survey",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Get it back.
	resp = doJSON(t, "GET", srv.URL+"/event-types/survey.archived", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete it.
	resp = doJSON(t, "DELETE", srv.URL+"/event-types/survey.archived", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Built-in types cannot be deleted.
	resp = doJSON(t, "DELETE", srv.URL+"/event-types/response.submitted", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete builtin: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEventTypes_CreateMissingName(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "POST", srv.URL+"/event-types", map[string]any{
		"description": "no name",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Deliveries ---

func TestDeliveries_ListEmpty(t *testing.T) {
	srv, _ := testServer(t)
	whID, _ := createWebhook(t, srv, "https://example.com/hook")

	resp := doJSON(t, "GET", srv.URL+"/webhooks/"+whID+"/deliveries", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list deliveries: expected 200, got %d", resp.StatusCode)
	}
	var rows []map[string]any
	decodeBody(t, resp, &rows)
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(rows))
	}
}

func TestDeliveries_InvalidID(t *testing.T) {
	srv, _ := testServer(t)

	resp := doJSON(t, "GET", srv.URL+"/deliveries/not-a-valid-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
