package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mvoronin/laptopshop/internal/config"
	"github.com/mvoronin/laptopshop/internal/es"
	"github.com/mvoronin/laptopshop/internal/handlers"
	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/middleware/cartclaim"
	"github.com/mvoronin/laptopshop/internal/middleware/loggingmw"
	"github.com/mvoronin/laptopshop/internal/mykafka"
	cartsvc "github.com/mvoronin/laptopshop/internal/service/cart"
	catalogsvc "github.com/mvoronin/laptopshop/internal/service/catalog"
	ordersvc "github.com/mvoronin/laptopshop/internal/service/order"
	reviewsvc "github.com/mvoronin/laptopshop/internal/service/review"
	searchsvc "github.com/mvoronin/laptopshop/internal/service/search"
	"github.com/mvoronin/laptopshop/internal/service/token"
	"github.com/mvoronin/laptopshop/internal/session"
	httpserver "github.com/mvoronin/laptopshop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	sessions, err := session.NewRedisStore(configuration.REDIS_ADDR, configuration.REDIS_PASSWORD)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	// Kafka and Elasticsearch are optional collaborators; the store
	// runs without them, skipping events and falling back to SQL search.
	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	}

	searchSvc := &searchsvc.Service{DB: db, Index: es.ItemIndex}
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		if err := es.SyncItems(context.Background(), esClient, db); err != nil {
			log.Fatalf("elasticsearch sync error: %v", err)
		}
		searchSvc.ES = esClient
	}

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}
	carts := &cartsvc.Service{DB: db}
	orders := &ordersvc.Service{DB: db}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		CatalogHandler: &handlers.CatalogHandler{Svc: &catalogsvc.Service{DB: db}},
		CartHandler:    &handlers.CartHandler{Carts: carts, Sessions: sessions, Producer: prod},
		OrderHandler:   &handlers.OrderHandler{Orders: orders, Sessions: sessions, Producer: prod},
		ReviewHandler:  &handlers.ReviewHandler{Svc: &reviewsvc.Service{DB: db}},
		SearchHandler:  &handlers.SearchHandler{Svc: searchSvc},
		Tokens:         tokens,
		CartClaim:      &cartclaim.Middleware{DB: db, Carts: carts, Sessions: sessions},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := sessions.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
