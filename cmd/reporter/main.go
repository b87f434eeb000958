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

	"github.com/ariefcatur/go-sales-ledger.git/internal/config"
	kafkax "github.com/ariefcatur/go-sales-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-sales-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-sales-ledger.git/internal/reporting"
	"github.com/ariefcatur/go-sales-ledger.git/internal/sales"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	proj := &reporting.Projector{
		Store: &reporting.RedisProjectorStore{RDB: rdb, Service: "reporter"},
	}

	group := getenv("REPORTER_GROUP", "sales-reporter")
	workers := mustAtoi(os.Getenv("REPORTER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, sales.TopicSaleRecorded, workers)

	go func() {
		log.Printf("reporter consumer started: group=%s topic=%s workers=%d", group, sales.TopicSaleRecorded, workers)
		if err := cons.Start(ctx, proj.HandleSaleRecorded); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

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
