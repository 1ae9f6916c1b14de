package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"metacatalog/internal/apperror"
	"metacatalog/internal/auth"
)

// TokenRequest is the optional body of a token request
type TokenRequest struct {
	// TTL is a Go duration such as "720h"; "0" never expires
	TTL string `json:"ttl,omitempty"`
}

// IssueToken creates an API token for the user in the path
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, apperror.Validation("invalid id %q", chi.URLParam(r, "id")))
		return
	}

	ttl := h.opts.TokenTTL
	if r.ContentLength != 0 {
		var req TokenRequest
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
		if req.TTL != "" {
			if ttl, err = time.ParseDuration(req.TTL); err != nil || ttl < 0 {
				h.writeError(w, r, apperror.Validation("invalid ttl %q", req.TTL))
				return
			}
		}
	}

	if err := h.authorizeTokenAccess(r, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.catalog.Tokens.Issue(r.Context(), id, ttl)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, token, http.StatusCreated)
}

// RevokeTokens deletes every token of the user in the path
func (h *Handler) RevokeTokens(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, apperror.Validation("invalid id %q", chi.URLParam(r, "id")))
		return
	}
	if err := h.authorizeTokenAccess(r, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.Tokens.Revoke(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeTokenAccess allows the user themself, configured admins and
// users flagged isAdmin. Without authentication anyone may manage tokens.
func (h *Handler) authorizeTokenAccess(r *http.Request, userID uuid.UUID) error {
	ctx := r.Context()
	user, err := h.catalog.Users.Get(ctx, userID, "")
	if err != nil {
		return err
	}
	if !h.opts.Auth.Enabled {
		return nil
	}

	principal := auth.Principal(ctx)
	if principal == user.Name || h.opts.IsAdmin(principal) {
		return nil
	}
	caller, err := h.catalog.Users.GetByName(ctx, principal, "")
	if err == nil && caller.IsAdmin {
		return nil
	}
	if err != nil && !apperror.IsNotFound(err) {
		return err
	}
	return apperror.Forbidden("%s is not allowed to manage tokens of %s", principal, user.Name)
}
