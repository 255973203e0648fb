package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/S-Muthumalai/E-Commerce-front/internal/wishlist"
)

type WishlistHandler struct {
	Repo *wishlist.Repo
}

func (h *WishlistHandler) Register(r *chi.Mux, auth *Auth) {
	g := r.With(auth.RequireAuth)
	g.Get("/api/wishlist", h.list)
	g.Post("/api/wishlist", h.add)
	g.Delete("/api/wishlist/{productID}", h.remove)
}

func (h *WishlistHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.Repo.ListWithProducts(ctx, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []wishlist.EntryWithProduct{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type addWishlistReq struct {
	ProductID string `json:"product_id"`
}

func (h *WishlistHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addWishlistReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// adding twice is a no-op, not an error
	if err := h.Repo.Add(ctx, UserIDFrom(r.Context()), req.ProductID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *WishlistHandler) remove(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, err := h.Repo.Remove(ctx, UserIDFrom(r.Context()), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not in wishlist"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
