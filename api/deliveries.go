package api

import (
	"net/http"

	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/id"
)

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	opts := delivery.ListOpts{
		Offset:   queryInt(r, "offset", 0),
		Limit:    queryInt(r, "limit", 50),
		SurveyID: queryParam(r, "survey_id"),
		Success:  queryBool(r, "success"),
	}

	if raw := queryParam(r, "webhook_id"); raw != "" {
		whID, err := id.ParseWebhookID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook ID")
			return
		}
		opts.WebhookID = &whID
	}

	rows, err := h.engine.Store().ListAttempts(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) listWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	opts := delivery.ListOpts{
		Offset:    queryInt(r, "offset", 0),
		Limit:     queryInt(r, "limit", 50),
		Success:   queryBool(r, "success"),
		WebhookID: &whID,
	}

	rows, listErr := h.engine.Store().ListAttempts(r.Context(), opts)
	if listErr != nil {
		h.writeServiceError(w, listErr)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) getDelivery(w http.ResponseWriter, r *http.Request) {
	attID, err := id.ParseAttemptID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt ID")
		return
	}

	a, getErr := h.engine.Store().GetAttempt(r.Context(), attID)
	if getErr != nil {
		h.writeServiceError(w, getErr)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) retryDelivery(w http.ResponseWriter, r *http.Request) {
	attID, err := id.ParseAttemptID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt ID")
		return
	}

	a, retryErr := h.engine.RetryDelivery(r.Context(), attID)
	if retryErr != nil {
		h.writeServiceError(w, retryErr)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
