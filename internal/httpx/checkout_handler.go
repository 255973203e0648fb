package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/S-Muthumalai/E-Commerce-front/internal/orders"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
)

// ChallengeGate is satisfied by *otp.Store.
type ChallengeGate interface {
	Issue(ctx context.Context, phone string) (string, error)
	Verify(ctx context.Context, phone, code string) error
}

// OrderPlacer is satisfied by *orders.Repo.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, items []orders.ItemInput, shippingAddress, contact string, deliveryDate *time.Time) (orders.Order, error)
	CheckStock(ctx context.Context, items []orders.ItemInput) error
}

// CacheInvalidator is satisfied by *redis.Client.
type CacheInvalidator interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type CheckoutHandler struct {
	Gate   ChallengeGate
	Placer OrderPlacer
	Cache  CacheInvalidator
}

func (h *CheckoutHandler) Register(r *chi.Mux, auth *Auth) {
	g := r.With(auth.RequireAuth)
	g.Post("/api/send-otp", h.sendOTP)
	g.Post("/api/place-order", h.placeOrder)
}

type sendOTPReq struct {
	Phone string `json:"phone"`
}

func (h *CheckoutHandler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPReq
	// body is optional; the token's phone is the default
	_ = json.NewDecoder(r.Body).Decode(&req)
	phone := req.Phone
	if phone == "" {
		phone = PhoneFrom(r.Context())
	}
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone number is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Gate.Issue(ctx, phone); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "otp sent"})
}

type placeOrderReq struct {
	Items           []orders.ItemInput `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	Contact         string             `json:"contact"`
	DeliveryDate    *time.Time         `json:"delivery_date,omitempty"`
	Phone           string             `json:"phone"`
	OTP             string             `json:"otp"`
}

func (h *CheckoutHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order must contain at least one item"})
		return
	}
	if req.ShippingAddress == "" || req.Contact == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shipping_address and contact are required"})
		return
	}

	phone := req.Phone
	if phone == "" {
		phone = PhoneFrom(r.Context())
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// OTP first: a failed challenge must leave stock untouched
	if err := h.Gate.Verify(ctx, phone, req.OTP); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Placer.CheckStock(ctx, req.Items); err != nil {
		writeError(w, err)
		return
	}

	order, err := h.Placer.PlaceOrder(ctx, UserIDFrom(r.Context()), req.Items, req.ShippingAddress, req.Contact, req.DeliveryDate)
	if err != nil {
		writeError(w, err)
		return
	}

	// stock just changed; drop the cached product rows
	for _, it := range req.Items {
		_ = h.Cache.Del(ctx, fmt.Sprintf(redisx.KeyProduct, it.ProductID)).Err()
	}

	writeJSON(w, http.StatusCreated, order)
}
