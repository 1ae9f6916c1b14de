package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"metacatalog/internal/domain"
)

func (h *Handler) mountTags(r chi.Router) {
	r.Get("/", h.ListTagCategories)
	r.Post("/", h.CreateTagCategory)
	r.Get("/{category}", h.GetTagCategory)
	r.Put("/{category}", h.UpdateTagCategory)
	r.Post("/{category}", h.CreateTag)
	r.Get("/{category}/{primary}", h.GetTag)
	r.Put("/{category}/{primary}", h.UpdateTag)
	r.Post("/{category}/{primary}", h.CreateTag)
	r.Get("/{category}/{primary}/{secondary}", h.GetTag)
	r.Put("/{category}/{primary}/{secondary}", h.UpdateTag)
}

// tagFQN joins the tag path segments present in the route
func tagFQN(r *http.Request) string {
	parts := []string{chi.URLParam(r, "category")}
	for _, p := range []string{"primary", "secondary"} {
		if v := chi.URLParam(r, p); v != "" {
			parts = append(parts, v)
		}
	}
	return domain.BuildFQN(parts...)
}

// ListTagCategories returns every category with its tags
func (h *Handler) ListTagCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Tags.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, domain.ResultList[domain.TagCategory]{
		Data:   categories,
		Paging: domain.Paging{Total: len(categories)},
	}, http.StatusOK)
}

// CreateTagCategory creates a category and the tags declared under it
func (h *Handler) CreateTagCategory(w http.ResponseWriter, r *http.Request) {
	var category domain.TagCategory
	if err := decode(r, &category); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.catalog.Tags.CreateCategory(r.Context(), &category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, created, http.StatusCreated)
}

// GetTagCategory returns one category
func (h *Handler) GetTagCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.Tags.GetCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, category, http.StatusOK)
}

// UpdateTagCategory replaces a category's description and type
func (h *Handler) UpdateTagCategory(w http.ResponseWriter, r *http.Request) {
	var category domain.TagCategory
	if err := decode(r, &category); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.catalog.Tags.UpdateCategory(r.Context(), chi.URLParam(r, "category"), &category)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, updated, http.StatusOK)
}

// CreateTag creates a tag under the category or primary tag in the path
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var tag domain.Tag
	if err := decode(r, &tag); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.catalog.Tags.CreateTag(r.Context(), tagFQN(r), &tag)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, created, http.StatusCreated)
}

// GetTag returns a primary or secondary tag
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.catalog.Tags.GetTag(r.Context(), tagFQN(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, tag, http.StatusOK)
}

// UpdateTag replaces a tag's description, associated tags and deprecation
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var tag domain.Tag
	if err := decode(r, &tag); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.catalog.Tags.UpdateTag(r.Context(), tagFQN(r), &tag)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, updated, http.StatusOK)
}
