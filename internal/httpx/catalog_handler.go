package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/S-Muthumalai/E-Commerce-front/internal/kafka"
	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
	"github.com/S-Muthumalai/E-Commerce-front/internal/notify"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

// EventPublisher is satisfied by *kafkax.Producer.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CatalogHandler struct {
	Repo            *catalog.Repo
	PriceProducer   EventPublisher
	RestockProducer EventPublisher
	Redis           *redis.Client
	Service         string
}

func (h *CatalogHandler) Register(r *chi.Mux, auth *Auth) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/{id}", h.get)
	r.Get("/api/products/{id}/price-history", h.priceHistory)

	admin := r.With(auth.RequireAuth, RequireRole(users.RoleAdmin))
	admin.Post("/api/products", h.create)
	admin.Put("/api/products/{id}", h.update)
	admin.Delete("/api/products/{id}", h.delete)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		ps  []catalog.Product
		err error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		ps, err = h.Repo.ListByCategory(ctx, category)
	} else {
		ps, err = h.Repo.List(ctx)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first
	key := fmt.Sprintf(redisx.KeyProduct, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	p, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	b, _ := json.Marshal(p)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLProductCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *CatalogHandler) priceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Repo.Get(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.Repo.PriceHistory(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []catalog.PriceHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type createProductReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and category are required"})
		return
	}
	if req.PriceCents < 0 || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price and stock must be non-negative"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.Create(ctx, catalog.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch catalog.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, ch, err := h.Repo.Update(ctx, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyProduct, id)).Err()

	// events go out after the commit; the dispatcher owns drop detection
	if ch.PriceChanged {
		h.publish(h.PriceProducer, r, notify.EventPriceChanged, p.ID, notify.PriceChangedPayload{
			ProductID:     p.ID,
			OldPriceCents: ch.OldPriceCents,
			NewPriceCents: ch.NewPriceCents,
		})
	}
	if ch.Restocked {
		h.publish(h.RestockProducer, r, notify.EventRestocked, p.ID, notify.RestockedPayload{
			ProductID: p.ID,
			Stock:     p.Stock,
		})
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) publish(producer EventPublisher, r *http.Request, eventType, productID string, payload any) {
	ev := notify.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: productID,
		Payload:       kafkax.MustMarshal(payload),
	}
	producer.Publish(notify.PartitionKey(productID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *CatalogHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Repo.Delete(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyProduct, id)).Err()
	w.WriteHeader(http.StatusNoContent)
}
