package api

import (
	"net/http"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/subscription"
)

func (h *Handler) createWebhook(w http.ResponseWriter, r *http.Request) {
	var in subscription.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.engine.Subscriptions().Create(r.Context(), r.PathValue("surveyID"), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// The signing secret is exposed on creation and rotation only.
	writeJSON(w, http.StatusCreated, map[string]any{
		"webhook": sub,
		"secret":  sub.Secret,
	})
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	opts := subscription.ListOpts{
		Offset:   queryInt(r, "offset", 0),
		Limit:    queryInt(r, "limit", 50),
		IsActive: queryBool(r, "is_active"),
	}

	subs, err := h.engine.Subscriptions().List(r.Context(), r.PathValue("surveyID"), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	sub, getErr := h.engine.Subscriptions().Get(r.Context(), whID)
	if getErr != nil {
		h.writeServiceError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) updateWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	var in subscription.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, updateErr := h.engine.Subscriptions().Update(r.Context(), whID, in)
	if updateErr != nil {
		h.writeServiceError(w, updateErr)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	if deleteErr := h.engine.Subscriptions().Delete(r.Context(), whID); deleteErr != nil {
		h.writeServiceError(w, deleteErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	newSecret, rotateErr := h.engine.Subscriptions().RotateSecret(r.Context(), whID)
	if rotateErr != nil {
		h.writeServiceError(w, rotateErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": newSecret})
}

type testWebhookRequest struct {
	Event event.Type `json:"event,omitempty"`
}

func (h *Handler) testWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	// Body is optional; an empty event falls back to the first subscribed type.
	var req testWebhookRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	res, testErr := h.engine.TestWebhook(r.Context(), whID, req.Event)
	if testErr != nil {
		h.writeServiceError(w, testErr)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type triggerWebhookRequest struct {
	Response *event.Response `json:"response"`
}

func (h *Handler) triggerWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	var req triggerWebhookRequest
	if err := decodeJSON(r, &req); err != nil || req.Response == nil {
		writeError(w, http.StatusBadRequest, "a response snapshot is required")
		return
	}

	a, triggerErr := h.engine.TriggerForResponse(r.Context(), whID, req.Response)
	if triggerErr != nil {
		h.writeServiceError(w, triggerErr)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) webhookStatus(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	sum, sumErr := h.engine.DeliveryStatus(r.Context(), whID)
	if sumErr != nil {
		h.writeServiceError(w, sumErr)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}
