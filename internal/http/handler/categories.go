package handler

import (
	"encoding/json"
	"net/http"

	"dayplan/internal/auth"
	"dayplan/internal/category"
)

type CategoryHandler struct {
	Svc *category.Service
}

type categoryReq struct {
	Content    *string `json:"content"`
	Color      *string `json:"color"`
	IsSelected *bool   `json:"is_selected"`
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	in := category.CreateInput{}
	if req.Content != nil {
		in.Content = *req.Content
	}
	if req.Color != nil {
		in.Color = *req.Color
	}

	c, err := h.Svc.Create(r.Context(), uid, in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	cats, err := h.Svc.List(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for i := range cats {
		out = append(out, *toCategoryDTO(&cats[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid id")
		return
	}

	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}

	c, err := h.Svc.Update(r.Context(), uid, id, category.UpdateInput{
		Content:    req.Content,
		Color:      req.Color,
		IsSelected: req.IsSelected,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(c))
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func toCategoryDTO(c *category.Category) *categoryDTO {
	return &categoryDTO{
		ID:         c.ID,
		Content:    c.Content,
		Color:      c.Color,
		Order:      c.CategoryOrder,
		IsSelected: c.IsSelected,
	}
}
