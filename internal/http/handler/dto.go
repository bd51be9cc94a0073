package handler

import (
	"time"

	"dayplan/internal/alarm"
	"dayplan/internal/planner"
)

type alarmDTO struct {
	ID   uint64    `json:"id"`
	Time time.Time `json:"time"`
}

type subTodoDTO struct {
	ID        uint64 `json:"id"`
	Content   string `json:"content"`
	Order     uint64 `json:"order"`
	Completed bool   `json:"completed"`
}

type tagDTO struct {
	ID      uint64 `json:"id"`
	Content string `json:"content"`
}

type todoDTO struct {
	ID             uint64       `json:"id"`
	Flag           bool         `json:"flag"`
	TodayTodo      bool         `json:"today_todo"`
	Completed      bool         `json:"completed"`
	TodoOrder      uint64       `json:"todo_order"`
	TodayTodoOrder uint64       `json:"today_todo_order"`
	EndDate        *string      `json:"end_date"`
	SubTodos       []subTodoDTO `json:"sub_todos"`
	Tags           []tagDTO     `json:"tags,omitempty"`
}

type categoryDTO struct {
	ID         uint64 `json:"id"`
	Content    string `json:"content"`
	Color      string `json:"color"`
	Order      uint64 `json:"order"`
	IsSelected bool   `json:"is_selected"`
}

type scheduleDTO struct {
	ID           uint64       `json:"id"`
	Content      string       `json:"content"`
	Memo         string       `json:"memo"`
	IsAllDay     bool         `json:"is_all_day"`
	RepeatOption string       `json:"repeat_option"`
	RepeatValue  string       `json:"repeat_value"`
	RepeatStart  *string      `json:"repeat_start"`
	RepeatEnd    *string      `json:"repeat_end"`
	ParentID     *uint64      `json:"parent_id"`
	Category     *categoryDTO `json:"category"`
	CategoryID   *uint64      `json:"category_id"`
	Alarms       []alarmDTO   `json:"alarms"`
	Todo         *todoDTO     `json:"todo,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func dayString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dayLayout)
	return &s
}

func toAlarmDTOs(alarms []alarm.Alarm) []alarmDTO {
	out := make([]alarmDTO, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, alarmDTO{ID: a.ID, Time: a.Time})
	}
	return out
}

func toTodoDTO(t *planner.Todo, tags []planner.Tag) *todoDTO {
	if t == nil {
		return nil
	}
	subs := make([]subTodoDTO, 0, len(t.SubTodos))
	for _, st := range t.SubTodos {
		subs = append(subs, subTodoDTO{
			ID:        st.ID,
			Content:   st.Content,
			Order:     st.SubTodoOrder,
			Completed: st.Completed,
		})
	}
	var tagOut []tagDTO
	for _, tg := range tags {
		tagOut = append(tagOut, tagDTO{ID: tg.ID, Content: tg.Content})
	}
	return &todoDTO{
		ID:             t.ID,
		Flag:           t.Flag,
		TodayTodo:      t.TodayTodo,
		Completed:      t.Completed,
		TodoOrder:      t.TodoOrder,
		TodayTodoOrder: t.TodayTodoOrder,
		EndDate:        dayString(t.EndDate),
		SubTodos:       subs,
		Tags:           tagOut,
	}
}

func todoWithTags(t *planner.Todo) *todoDTO {
	if t == nil {
		return nil
	}
	return toTodoDTO(t, t.Tags)
}

func toScheduleDTO(s *planner.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:           s.ID,
		Content:      s.Content,
		Memo:         s.Memo,
		IsAllDay:     s.IsAllDay,
		RepeatOption: string(s.RepeatOption),
		RepeatValue:  s.RepeatValue,
		RepeatStart:  dayString(s.RepeatStart),
		RepeatEnd:    dayString(s.RepeatEnd),
		ParentID:     s.ParentID,
		CategoryID:   s.CategoryID,
		Alarms:       toAlarmDTOs(s.Alarms),
		Todo:         todoWithTags(s.Todo),
		CreatedAt:    s.CreatedAt,
	}
	if s.Category != nil {
		dto.Category = &categoryDTO{
			ID:         s.Category.ID,
			Content:    s.Category.Content,
			Color:      s.Category.Color,
			Order:      s.Category.CategoryOrder,
			IsSelected: s.Category.IsSelected,
		}
	}
	return dto
}

func toScheduleDTOs(in []planner.Schedule) []scheduleDTO {
	out := make([]scheduleDTO, 0, len(in))
	for i := range in {
		out = append(out, toScheduleDTO(&in[i]))
	}
	return out
}
