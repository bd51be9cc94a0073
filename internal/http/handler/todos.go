package handler

import (
	"encoding/json"
	"net/http"

	"dayplan/internal/auth"
	"dayplan/internal/planner"
)

type TodoHandler struct {
	Svc   *planner.Service
	Query *planner.Query
}

type createTodoReq struct {
	scheduleReq
}

// Create makes a schedule that carries a todo extension. A missing todo
// block still gets the extension with defaults; this endpoint always
// produces a todo.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createTodoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	if req.Todo == nil {
		req.Todo = &todoReq{}
	}

	rule, err := req.rule()
	if err != nil {
		badRequest(w, "invalid repeat dates (want 2006-01-02)")
		return
	}
	times, err := req.alarmTimes()
	if err != nil {
		badRequest(w, "invalid alarm time (want RFC3339)")
		return
	}
	todoIn, err := req.Todo.input()
	if err != nil {
		badRequest(w, "invalid todo end date (want 2006-01-02)")
		return
	}

	in := planner.CreateInput{
		Content:    req.Content,
		IsAllDay:   req.IsAllDay != nil && *req.IsAllDay,
		CategoryID: req.CategoryID,
		Todo:       todoIn,
	}
	if req.Memo != nil {
		in.Memo = *req.Memo
	}
	if rule != nil {
		in.Rule = *rule
	} else {
		in.Rule = planner.RecurrenceRule{Option: planner.RepeatNone}
	}
	if times != nil {
		in.AlarmTimes = *times
	}

	sch, err := h.Svc.Create(r.Context(), uid, in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleDTO(sch))
}

type completeReq struct {
	Completed *bool `json:"completed"`
}

func (h *TodoHandler) Complete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	req := completeReq{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	if err := h.Svc.Complete(r.Context(), uid, id, completed); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderReq struct {
	Order uint64 `json:"order"`
	Today bool   `json:"today"`
}

func (h *TodoHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var req reorderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}

	if err := h.Svc.ReorderTodo(r.Context(), uid, id, req.Order, req.Today); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func todoItemsDTO(items []planner.TodoItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		it := &items[i]
		out = append(out, map[string]any{
			"todo":     toTodoDTO(&it.Todo, it.Tags),
			"schedule": toScheduleDTO(&it.Schedule),
		})
	}
	return out
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	items, err := h.Query.Todos(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todoItemsDTO(items))
}

func (h *TodoHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	items, err := h.Query.TodosToday(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todoItemsDTO(items))
}

func (h *TodoHandler) ListByTag(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	items, err := h.Query.TodosByTag(r.Context(), uid, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todoItemsDTO(items))
}

func (h *TodoHandler) Tags(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	tags, err := h.Query.Tags(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]tagDTO, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagDTO{ID: t.ID, Content: t.Content})
	}
	writeJSON(w, http.StatusOK, out)
}
