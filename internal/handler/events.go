package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"metacatalog/internal/apperror"
	"metacatalog/internal/codec"
	"metacatalog/internal/domain"
)

var eventTypes = []domain.EventType{
	domain.EventEntityCreated,
	domain.EventEntityUpdated,
	domain.EventEntityDeleted,
}

// ListEvents returns stored change events. Each event type is a query
// parameter listing entity types, or "*" for all of them; timestamp is the
// earliest event time in unix milliseconds.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{EntityTypes: make(map[domain.EventType][]string)}
	for _, et := range eventTypes {
		v := q.Get(string(et))
		if v == "" {
			continue
		}
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.EntityTypes[et] = append(filter.EntityTypes[et], t)
			}
		}
	}
	if len(filter.EntityTypes) == 0 {
		h.writeError(w, r, apperror.Validation("at least one event type filter is required"))
		return
	}
	if ts := q.Get("timestamp"); ts != "" {
		ms, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			h.writeError(w, r, apperror.Validation("timestamp must be unix milliseconds"))
			return
		}
		filter.Since = time.UnixMilli(ms).UTC()
	}

	events, err := h.catalog.ListEvents(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.ChangeEvent{}
	}
	h.writeJSON(w, domain.ResultList[domain.ChangeEvent]{
		Data:   events,
		Paging: domain.Paging{Total: len(events)},
	}, http.StatusOK)
}

// Export writes a snapshot of the whole catalog as JSON or YAML
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, apperror.Validation("%v", err))
		return
	}
	snapshot, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := c.Export(snapshot, &buf); err != nil {
		h.writeError(w, r, apperror.Internal("failed to export catalog", err))
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=metacatalog."+c.Format())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
