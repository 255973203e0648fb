package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

type UserHandler struct {
	Repo *users.Repo
}

func (h *UserHandler) Register(r *chi.Mux, auth *Auth) {
	g := r.With(auth.RequireAuth)
	g.Get("/api/user", h.current)
	g.Put("/api/user", h.update)
}

func (h *UserHandler) current(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Repo.Get(ctx, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch users.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if patch.Username == nil && patch.Email == nil && patch.Phone == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to update"})
		return
	}
	if patch.Username != nil && *patch.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username must not be empty"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Repo.UpdateProfile(ctx, UserIDFrom(r.Context()), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
