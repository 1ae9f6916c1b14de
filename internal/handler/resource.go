package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
	"metacatalog/internal/service"
)

// Media type selecting an RFC 6902 patch; any other PATCH body is a merge patch
const jsonPatchMediaType = "application/json-patch+json"

// changeTypeHeader tells follower callers whether anything changed
const changeTypeHeader = "X-Change-Type"

const (
	changeNoChange  = "entityNoChange"
	changeFollowers = "entityFieldsChanged"
)

// resource serves one entity collection. C is the create request body and
// build turns it into a new entity.
type resource[T domain.Entity, C any] struct {
	h         *Handler
	repo      *service.Repository[T]
	build     func(*C) T
	followers bool
}

func newResource[T domain.Entity, C any](h *Handler, repo *service.Repository[T], build func(*C) T, followers bool) *resource[T, C] {
	return &resource[T, C]{h: h, repo: repo, build: build, followers: followers}
}

func (res *resource[T, C]) mount(r chi.Router) {
	r.Get("/", res.list)
	r.Post("/", res.create)
	r.Put("/", res.createOrUpdate)
	r.Get("/name/{fqn}", res.getByName)
	r.Get("/{id}", res.get)
	r.Patch("/{id}", res.patch)
	r.Delete("/{id}", res.delete)
	r.Get("/{id}/versions", res.listVersions)
	r.Get("/{id}/versions/{version}", res.getVersion)
	if res.followers {
		r.Put("/{id}/followers", res.addFollower)
		r.Delete("/{id}/followers/{userId}", res.deleteFollower)
	}
}

func (res *resource[T, C]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.ListParams{
		Fields: q.Get("fields"),
		Before: q.Get("before"),
		After:  q.Get("after"),
	}
	if p := res.repo.FilterParam(); p != "" {
		params.Container = q.Get(p)
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			res.h.writeError(w, r, apperror.Validation("limit must be an integer"))
			return
		}
		params.Limit = limit
	}

	result, err := res.repo.List(r.Context(), params)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, result, http.StatusOK)
}

func (res *resource[T, C]) get(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := res.repo.Get(r.Context(), id, r.URL.Query().Get("fields"))
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, e, http.StatusOK)
}

func (res *resource[T, C]) getByName(w http.ResponseWriter, r *http.Request) {
	e, err := res.repo.GetByName(r.Context(), chi.URLParam(r, "fqn"), r.URL.Query().Get("fields"))
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, e, http.StatusOK)
}

func (res *resource[T, C]) create(w http.ResponseWriter, r *http.Request) {
	e, ok := res.decodeRequest(w, r)
	if !ok {
		return
	}
	created, err := res.repo.Create(r.Context(), e)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, created, http.StatusCreated)
}

func (res *resource[T, C]) createOrUpdate(w http.ResponseWriter, r *http.Request) {
	e, ok := res.decodeRequest(w, r)
	if !ok {
		return
	}
	result, created, err := res.repo.CreateOrUpdate(r.Context(), e)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	if created {
		res.h.writeJSON(w, result, http.StatusCreated)
		return
	}
	res.h.writeJSON(w, result, http.StatusOK)
}

func (res *resource[T, C]) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		res.h.writeError(w, r, apperror.Validation("failed to read request body: %v", err))
		return
	}

	patchType := service.MergePatch
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mediaType == jsonPatchMediaType {
		patchType = service.JSONPatch
	}

	e, err := res.repo.Patch(r.Context(), id, patchType, body)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, e, http.StatusOK)
}

func (res *resource[T, C]) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := res.repo.Delete(r.Context(), id)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, e, http.StatusOK)
}

func (res *resource[T, C]) listVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := res.repo.ListVersions(r.Context(), id)
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, history, http.StatusOK)
}

func (res *resource[T, C]) getVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := res.repo.GetVersion(r.Context(), id, chi.URLParam(r, "version"))
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	res.h.writeJSON(w, e, http.StatusOK)
}

// addFollower takes the user id as a JSON string body
func (res *resource[T, C]) addFollower(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	var raw string
	if err := decode(r, &raw); err != nil {
		res.h.writeError(w, r, err)
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		res.h.writeError(w, r, apperror.Validation("invalid user id %q", raw))
		return
	}
	event, err := res.repo.AddFollower(r.Context(), id, userID)
	res.writeFollowerChange(w, r, event, err)
}

func (res *resource[T, C]) deleteFollower(w http.ResponseWriter, r *http.Request) {
	id, ok := res.pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := res.pathID(w, r, "userId")
	if !ok {
		return
	}
	event, err := res.repo.DeleteFollower(r.Context(), id, userID)
	res.writeFollowerChange(w, r, event, err)
}

func (res *resource[T, C]) writeFollowerChange(w http.ResponseWriter, r *http.Request, event *domain.ChangeEvent, err error) {
	if err != nil {
		res.h.writeError(w, r, err)
		return
	}
	if event == nil {
		w.Header().Set(changeTypeHeader, changeNoChange)
		res.h.writeJSON(w, json.RawMessage("null"), http.StatusOK)
		return
	}
	w.Header().Set(changeTypeHeader, changeFollowers)
	res.h.writeJSON(w, event, http.StatusOK)
}

// decodeRequest reads and validates the create request and builds the entity
func (res *resource[T, C]) decodeRequest(w http.ResponseWriter, r *http.Request) (T, bool) {
	var zero T
	req := new(C)
	if err := decode(r, req); err != nil {
		res.h.writeError(w, r, err)
		return zero, false
	}
	if err := res.h.check(req); err != nil {
		res.h.writeError(w, r, err)
		return zero, false
	}
	return res.build(req), true
}

func (res *resource[T, C]) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		res.h.writeError(w, r, apperror.Validation("invalid %s %q", param, raw))
		return uuid.Nil, false
	}
	return id, true
}
