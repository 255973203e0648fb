package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/S-Muthumalai/E-Commerce-front/internal/cart"
	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
	"github.com/S-Muthumalai/E-Commerce-front/internal/orders"
	"github.com/S-Muthumalai/E-Commerce-front/internal/otp"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto status codes and
// client-distinguishable bodies. Unknown errors become an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *orders.InsufficientStockError
	var transErr *orders.InvalidTransitionError

	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "insufficient stock",
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, otp.ErrInvalidOTP):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid otp"})
	case errors.Is(err, users.ErrNoMiddleman):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no middleman available"})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": transErr.Error()})
	case errors.Is(err, orders.ErrNotAssigned):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "order not assigned to caller"})
	case errors.Is(err, catalog.ErrInvalidID), errors.Is(err, cart.ErrInvalidQty):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
