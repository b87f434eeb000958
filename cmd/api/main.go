package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-sales-ledger.git/internal/auth"
	"github.com/ariefcatur/go-sales-ledger.git/internal/config"
	"github.com/ariefcatur/go-sales-ledger.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-sales-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-sales-ledger.git/internal/postgres"
	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
	"github.com/ariefcatur/go-sales-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-sales-ledger.git/internal/reporting"
	"github.com/ariefcatur/go-sales-ledger.git/internal/sales"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer utk sale.recorded
	prod := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleRecorded, 1024)
	prod.Start(ctx)

	// Repos & services
	productRepo := &products.Repo{DB: db}
	saleRepo := &sales.Repo{DB: db}
	saleSvc := &sales.Service{
		Products: productRepo,
		Store:    saleRepo,
		Idem:     &redisx.IdemStore{RDB: rdb},
	}
	reportSvc := &reporting.Service{
		Repo:  &reporting.Repo{DB: db},
		Cache: &reporting.RedisCache{RDB: rdb},
	}
	tokens := &auth.TokenIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}
	authSvc := &auth.Service{Users: &auth.Repo{DB: db}, Tokens: tokens}

	// Router: auth endpoint public, sisanya di belakang bearer token.
	router := httpx.NewRouter()
	ah := &httpx.AuthHandler{Auth: authSvc}
	ph := &httpx.ProductsHandler{Repo: productRepo}
	sh := &httpx.SalesHandler{
		Service:  saleSvc,
		Reports:  reportSvc,
		Producer: prod,
		Name:     cfg.ServiceName,
	}
	router.Group(func(r chi.Router) {
		ah.Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(httpx.Auth(tokens.Verify))
		ph.Register(r)
		sh.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
}
