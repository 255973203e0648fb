package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/S-Muthumalai/E-Commerce-front/internal/orders"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

type OrdersHandler struct {
	Repo  *orders.Repo
	Users *users.Repo
}

func (h *OrdersHandler) Register(r *chi.Mux, auth *Auth) {
	g := r.With(auth.RequireAuth)
	g.Get("/api/orders", h.listOwn)
	g.Get("/api/orders/{id}", h.get)
	g.Put("/api/orders/{id}/cancel", h.cancel)
	g.Delete("/api/orders/{id}", h.delete)

	admin := r.With(auth.RequireAuth, RequireRole(users.RoleAdmin))
	admin.Get("/api/ordersforadmin", h.listAll)
	admin.Put("/api/orders/{id}/approve", h.approve)
	admin.Get("/api/analytics", h.analytics)

	mid := r.With(auth.RequireAuth, RequireRole(users.RoleMiddleman))
	mid.Get("/api/Approvedorders", h.listAssigned)
	mid.Get("/api/orders/statuschange/{id}", h.statusChange)
}

func (h *OrdersHandler) listOwn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.ListByUser(ctx, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

// get enforces visibility: customers see their own orders, middlemen
// the orders assigned to them, admins everything.
func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSee(r.Context(), o.Order) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func canSee(ctx context.Context, o orders.Order) bool {
	switch RoleFrom(ctx) {
	case users.RoleAdmin:
		return true
	case users.RoleMiddleman:
		return o.MiddlemanID != nil && *o.MiddlemanID == UserIDFrom(ctx)
	default:
		return o.UserID == UserIDFrom(ctx)
	}
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if RoleFrom(r.Context()) != users.RoleAdmin && o.UserID != UserIDFrom(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
		return
	}

	cancelled, err := h.Repo.Cancel(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if RoleFrom(r.Context()) != users.RoleAdmin && o.UserID != UserIDFrom(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized"})
		return
	}

	if _, err := h.Repo.Delete(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Repo.ListAllWithDetails(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.AdminOrder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.Approve(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listAssigned(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.ListAssigned(ctx, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

// statusChange advances an assigned order one fulfillment step and
// reports the status it landed on.
func (h *OrdersHandler) statusChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	next, err := h.Repo.AdvanceStatus(ctx, id, UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]orders.Status{"status": next})
}

func (h *OrdersHandler) analytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.Repo.Analytics(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	byRole, err := h.Users.CountByRole(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders_by_status":     a.OrdersByStatus,
		"products_by_category": a.ProductsByCategory,
		"total_orders":         a.TotalOrders,
		"total_products":       a.TotalProducts,
		"users_by_role":        byRole,
	})
}
