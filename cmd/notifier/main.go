package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
	"github.com/S-Muthumalai/E-Commerce-front/internal/config"
	kafkax "github.com/S-Muthumalai/E-Commerce-front/internal/kafka"
	"github.com/S-Muthumalai/E-Commerce-front/internal/notify"
	"github.com/S-Muthumalai/E-Commerce-front/internal/postgres"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
	"github.com/S-Muthumalai/E-Commerce-front/internal/wishlist"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Catalog:     &catalog.Repo{DB: db},
		Wishlist:    &wishlist.Repo{DB: db},
		Users:       &users.Repo{DB: db},
		Redis:       rdb,
		Sender:      notify.LogSender{},
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "wishlist-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "8")

	// one consumer per catalog topic, same group, same handler
	cPrice := kafkax.NewConsumer(cfg.KafkaBrokers, group, notify.TopicPriceChanged, workers)
	cRestock := kafkax.NewConsumer(cfg.KafkaBrokers, group, notify.TopicRestocked, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, notify.TopicPriceChanged, workers)
		if err := cPrice.Start(ctx, svc.HandleEvent); err != nil {
			log.Printf("price consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, notify.TopicRestocked, workers)
		if err := cRestock.Start(ctx, svc.HandleEvent); err != nil {
			log.Printf("restock consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
