package api

import (
	"errors"
	"net/http"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/event"
)

func (h *Handler) createEventType(w http.ResponseWriter, r *http.Request) {
	var def catalog.Definition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	et, err := h.engine.Catalog().RegisterType(r.Context(), def)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, et)
}

func (h *Handler) listEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.engine.Catalog().ListTypes(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) getEventType(w http.ResponseWriter, r *http.Request) {
	et, err := h.engine.Catalog().GetType(r.Context(), event.Type(r.PathValue("name")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, et)
}

func (h *Handler) deleteEventType(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Catalog().DeleteType(r.Context(), event.Type(r.PathValue("name")))
	if err != nil {
		if errors.Is(err, catalog.ErrBuiltinType) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
