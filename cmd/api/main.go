package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/S-Muthumalai/E-Commerce-front/internal/cart"
	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
	"github.com/S-Muthumalai/E-Commerce-front/internal/config"
	"github.com/S-Muthumalai/E-Commerce-front/internal/httpx"
	kafkax "github.com/S-Muthumalai/E-Commerce-front/internal/kafka"
	"github.com/S-Muthumalai/E-Commerce-front/internal/notify"
	"github.com/S-Muthumalai/E-Commerce-front/internal/orders"
	"github.com/S-Muthumalai/E-Commerce-front/internal/otp"
	"github.com/S-Muthumalai/E-Commerce-front/internal/postgres"
	"github.com/S-Muthumalai/E-Commerce-front/internal/redisx"
	"github.com/S-Muthumalai/E-Commerce-front/internal/users"
	"github.com/S-Muthumalai/E-Commerce-front/internal/wishlist"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per catalog topic
	pPrice := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicPriceChanged, 1024)
	pPrice.Start(ctx)
	pRestock := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicRestocked, 1024)
	pRestock.Start(ctx)

	// Repos
	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	wishRepo := &wishlist.Repo{DB: db}
	userRepo := &users.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db, Policy: users.LeastLoaded{}}
	otpStore := &otp.Store{Redis: rdb, TTL: cfg.OTPTTL, Sender: notify.LogSender{}}

	// Router & handlers
	auth := &httpx.Auth{Secret: []byte(cfg.JWTSecret)}
	router := httpx.NewRouter()

	(&httpx.CatalogHandler{
		Repo:            catalogRepo,
		PriceProducer:   pPrice,
		RestockProducer: pRestock,
		Redis:           rdb,
		Service:         cfg.ServiceName,
	}).Register(router, auth)
	(&httpx.CartHandler{Repo: cartRepo}).Register(router, auth)
	(&httpx.WishlistHandler{Repo: wishRepo}).Register(router, auth)
	(&httpx.CheckoutHandler{Gate: otpStore, Placer: orderRepo, Cache: rdb}).Register(router, auth)
	(&httpx.OrdersHandler{Repo: orderRepo, Users: userRepo}).Register(router, auth)
	(&httpx.UserHandler{Repo: userRepo}).Register(router, auth)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPrice.Close()
	pRestock.Close()
	cancel()
	pPrice.WaitClosed()
	pRestock.WaitClosed()
}
