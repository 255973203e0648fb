package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
	kafkax "github.com/S-Muthumalai/E-Commerce-front/internal/kafka"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
)

type Catalog interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	PriceHistory(ctx context.Context, productID string) ([]catalog.PriceHistoryEntry, error)
}

type Wishlist interface {
	UserIDsForProduct(ctx context.Context, productID string) ([]string, error)
}

type Users interface {
	GetMany(ctx context.Context, ids []string) ([]users.User, error)
}

// Service turns catalog events into wishlist notifications. It is wired
// as the consumer handler in cmd/notifier.
type Service struct {
	Catalog     Catalog
	Wishlist    Wishlist
	Users       Users
	Redis       *redis.Client
	Sender      Sender
	ServiceName string

	// FanOut caps concurrent sends; zero means 8.
	FanOut int
}

// HandleEvent is the consumer handler for both catalog topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}

	// dedup via event_id so a redelivered event cannot double-notify
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	var err error
	switch env.EventType {
	case EventPriceChanged:
		p, perr := kafkax.UnwrapPayload[PriceChangedPayload](env.Payload)
		if perr != nil {
			return perr
		}
		err = s.NotifyPriceDrop(ctx, p.ProductID)
	case EventRestocked:
		p, perr := kafkax.UnwrapPayload[RestockedPayload](env.Payload)
		if perr != nil {
			return perr
		}
		err = s.NotifyRestock(ctx, p.ProductID, p.Stock)
	default:
		return nil // ignore
	}
	if err != nil {
		return err
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

// NotifyPriceDrop compares the two most recent price-history entries and,
// when the newest is lower, messages every wishlist holder of the
// product. It is a pure function of price-history state, so it must be
// invoked exactly once per price-change event.
func (s *Service) NotifyPriceDrop(ctx context.Context, productID string) error {
	history, err := s.Catalog.PriceHistory(ctx, productID)
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return nil
	}

	// history is ordered oldest first
	latest := history[len(history)-1].PriceCents
	previous := history[len(history)-2].PriceCents
	if latest >= previous {
		return nil
	}

	product, err := s.Catalog.Get(ctx, productID)
	if err != nil {
		return err
	}

	saved := previous - latest
	pct := float64(saved) / float64(previous) * 100
	subject := fmt.Sprintf("Price Drop Alert: %s", product.Name)
	body := fmt.Sprintf("%s on your wishlist dropped from %s to %s. You save %s (%.2f%%).",
		product.Name, dollars(previous), dollars(latest), dollars(saved), pct)

	return s.fanOut(ctx, productID, subject, body)
}

// NotifyRestock fires on a 0 -> >0 stock transition, independently of
// any price change.
func (s *Service) NotifyRestock(ctx context.Context, productID string, stock int) error {
	product, err := s.Catalog.Get(ctx, productID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Back in stock: %s", product.Name)
	body := fmt.Sprintf("%s on your wishlist is available again (%d in stock).", product.Name, stock)
	return s.fanOut(ctx, productID, subject, body)
}

// fanOut resolves wishlist holders and sends concurrently. Individual
// delivery failures are logged and swallowed; the event still commits.
func (s *Service) fanOut(ctx context.Context, productID, subject, body string) error {
	ids, err := s.Wishlist.UserIDsForProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	recipients, err := s.Users.GetMany(ctx, ids)
	if err != nil {
		return err
	}

	limit := s.FanOut
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, u := range recipients {
		u := u
		g.Go(func() error {
			if err := s.Sender.Send(gctx, recipient(u), subject, body); err != nil {
				log.Printf("%s: notify user %s: %v", s.ServiceName, u.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func recipient(u users.User) string {
	if u.Email != "" {
		return u.Email
	}
	if u.Phone != "" {
		return u.Phone
	}
	return u.Username
}

func dollars(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
