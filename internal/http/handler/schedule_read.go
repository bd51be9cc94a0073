package handler

import (
	"net/http"

	"dayplan/internal/auth"
	"dayplan/internal/planner"
)

type ScheduleReadHandler struct {
	Query *planner.Query
}

func (h *ScheduleReadHandler) Range(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		badRequest(w, "from required (2006-01-02)")
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		badRequest(w, "to required (2006-01-02)")
		return
	}
	if to.Before(from) {
		badRequest(w, "to before from")
		return
	}

	rows, err := h.Query.CalendarRange(r.Context(), uid, from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTOs(rows))
}

func (h *ScheduleReadHandler) Search(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Query.Search(r.Context(), uid, r.URL.Query().Get("q"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTOs(rows))
}

func (h *ScheduleReadHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	sch, err := h.Query.Get(r.Context(), uid, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(sch))
}

func (h *ScheduleReadHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	rows, err := h.Query.Lineage(r.Context(), uid, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTOs(rows))
}
