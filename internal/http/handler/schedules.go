package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"dayplan/internal/alarm"
	"dayplan/internal/auth"
	"dayplan/internal/planner"
)

type ScheduleHandler struct {
	Svc    *planner.Service
	Alarms *alarm.Service
}

type scheduleReq struct {
	Content     string   `json:"content"`
	Memo        *string  `json:"memo"`
	IsAllDay    *bool    `json:"is_all_day"`
	RepeatOption *string `json:"repeat_option"`
	RepeatValue  *string `json:"repeat_value"`
	RepeatStart  *string `json:"repeat_start"` // 2006-01-02
	RepeatEnd    *string `json:"repeat_end"`
	CategoryID   *uint64 `json:"category_id"`
	ClearCategory bool   `json:"clear_category"`
	AlarmTimes   *[]string `json:"alarms"` // RFC3339

	Todo *todoReq `json:"todo"`
}

type todoReq struct {
	Flag      bool         `json:"flag"`
	TodayTodo bool         `json:"today_todo"`
	EndDate   *string      `json:"end_date"`
	SubTodos  []subTodoReq `json:"sub_todos"`
	Tags      []string     `json:"tags"`
}

type subTodoReq struct {
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

func (req *scheduleReq) rule() (*planner.RecurrenceRule, error) {
	if req.RepeatOption == nil && req.RepeatStart == nil && req.RepeatEnd == nil && req.RepeatValue == nil {
		return nil, nil
	}
	rule := planner.RecurrenceRule{Option: planner.RepeatNone}
	if req.RepeatOption != nil {
		rule.Option = planner.RepeatOption(*req.RepeatOption)
	}
	if req.RepeatValue != nil {
		rule.Value = *req.RepeatValue
	}
	var err error
	if rule.Start, err = parseDayPtr(req.RepeatStart); err != nil {
		return nil, err
	}
	if rule.End, err = parseDayPtr(req.RepeatEnd); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (req *scheduleReq) alarmTimes() (*[]time.Time, error) {
	if req.AlarmTimes == nil {
		return nil, nil
	}
	out := make([]time.Time, 0, len(*req.AlarmTimes))
	for _, s := range *req.AlarmTimes {
		t, err := parseStamp(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return &out, nil
}

func (req *todoReq) input() (*planner.TodoInput, error) {
	if req == nil {
		return nil, nil
	}
	end, err := parseDayPtr(req.EndDate)
	if err != nil {
		return nil, err
	}
	in := planner.TodoInput{
		Flag:      req.Flag,
		TodayTodo: req.TodayTodo,
		EndDate:   end,
		Tags:      req.Tags,
	}
	for _, st := range req.SubTodos {
		in.SubTodos = append(in.SubTodos, planner.SubTodoInput{Content: st.Content, Completed: st.Completed})
	}
	return &in, nil
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req scheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
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

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var req scheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	in, err := updateInput(&req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	sch, err := h.Svc.UpdateWholesale(r.Context(), uid, id, *in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(sch))
}

func updateInput(req *scheduleReq) (*planner.UpdateInput, error) {
	rule, err := req.rule()
	if err != nil {
		return nil, err
	}
	times, err := req.alarmTimes()
	if err != nil {
		return nil, err
	}
	in := planner.UpdateInput{
		Memo:          req.Memo,
		IsAllDay:      req.IsAllDay,
		Rule:          rule,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		AlarmTimes:    times,
	}
	if req.Content != "" {
		in.Content = &req.Content
	}
	return &in, nil
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	if err := h.Svc.Delete(r.Context(), uid, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// splits

type splitReq struct {
	ChangedDate     *string `json:"changed_date"`
	RemovedDate     *string `json:"removed_date"`
	NextRepeatStart *string `json:"next_repeat_start"`
	PreRepeatEnd    *string `json:"pre_repeat_end"`
	RepeatStart     *string `json:"repeat_start"`

	Update *scheduleReq `json:"update"`
}

func (req *splitReq) update() (planner.UpdateInput, error) {
	if req.Update == nil {
		return planner.UpdateInput{}, nil
	}
	in, err := updateInput(req.Update)
	if err != nil {
		return planner.UpdateInput{}, err
	}
	return *in, nil
}

func requiredDay(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, err := parseDay(*s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func splitResultDTO(res *planner.SplitResult) map[string]any {
	created := make([]scheduleDTO, 0, len(res.Created))
	for _, c := range res.Created {
		created = append(created, toScheduleDTO(c))
	}
	return map[string]any{
		"original": toScheduleDTO(res.Original),
		"created":  created,
	}
}

func (h *ScheduleHandler) SplitUpdate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := auth.UserIDFromContext(r.Context())
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid id")
			return
		}

		var req splitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		upd, err := req.update()
		if err != nil {
			badRequest(w, "invalid update fields")
			return
		}

		var res *planner.SplitResult
		switch kind {
		case "front":
			next, ok := requiredDay(req.NextRepeatStart)
			if !ok {
				badRequest(w, "next_repeat_start required (2006-01-02)")
				return
			}
			res, err = h.Svc.UpdateRepeatFront(r.Context(), uid, id, planner.FrontSplitInput{
				NextRepeatStart: next,
				Update:          upd,
			})
		case "middle":
			changed, ok := requiredDay(req.ChangedDate)
			if !ok {
				badRequest(w, "changed_date required (2006-01-02)")
				return
			}
			next, ok := requiredDay(req.NextRepeatStart)
			if !ok {
				badRequest(w, "next_repeat_start required (2006-01-02)")
				return
			}
			res, err = h.Svc.UpdateRepeatMiddle(r.Context(), uid, id, planner.MiddleSplitInput{
				ChangedDate:     changed,
				NextRepeatStart: next,
				Update:          upd,
			})
		case "back":
			preEnd, ok := requiredDay(req.PreRepeatEnd)
			if !ok {
				badRequest(w, "pre_repeat_end required (2006-01-02)")
				return
			}
			start, ok := requiredDay(req.RepeatStart)
			if !ok {
				badRequest(w, "repeat_start required (2006-01-02)")
				return
			}
			res, err = h.Svc.UpdateRepeatBack(r.Context(), uid, id, planner.BackSplitInput{
				PreRepeatEnd: preEnd,
				RepeatStart:  start,
				Update:       upd,
			})
		default:
			badRequest(w, "unknown split kind")
			return
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, splitResultDTO(res))
	}
}

func (h *ScheduleHandler) SplitDelete(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := auth.UserIDFromContext(r.Context())
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid id")
			return
		}

		var req splitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}

		var res *planner.SplitResult
		var err error
		switch kind {
		case "front":
			next, ok := requiredDay(req.NextRepeatStart)
			if !ok {
				badRequest(w, "next_repeat_start required (2006-01-02)")
				return
			}
			res, err = h.Svc.DeleteRepeatFront(r.Context(), uid, id, planner.FrontDeleteInput{NextRepeatStart: next})
		case "middle":
			removed, ok := requiredDay(req.RemovedDate)
			if !ok {
				badRequest(w, "removed_date required (2006-01-02)")
				return
			}
			next, ok := requiredDay(req.NextRepeatStart)
			if !ok {
				badRequest(w, "next_repeat_start required (2006-01-02)")
				return
			}
			res, err = h.Svc.DeleteRepeatMiddle(r.Context(), uid, id, planner.MiddleDeleteInput{
				RemovedDate:     removed,
				NextRepeatStart: next,
			})
		case "back":
			preEnd, ok := requiredDay(req.PreRepeatEnd)
			if !ok {
				badRequest(w, "pre_repeat_end required (2006-01-02)")
				return
			}
			res, err = h.Svc.DeleteRepeatBack(r.Context(), uid, id, planner.BackDeleteInput{PreRepeatEnd: preEnd})
		default:
			badRequest(w, "unknown split kind")
			return
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, splitResultDTO(res))
	}
}

// alarms

type alarmReq struct {
	Time string `json:"time"`
}

func (h *ScheduleHandler) AddAlarm(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var req alarmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	at, err := parseStamp(req.Time)
	if err != nil {
		badRequest(w, "invalid time (RFC3339)")
		return
	}

	a, err := h.Alarms.Create(r.Context(), uid, &id, nil, at)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alarmDTO{ID: a.ID, Time: a.Time})
}

func (h *ScheduleHandler) DeleteAlarm(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	if err := h.Alarms.Delete(r.Context(), uid, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
