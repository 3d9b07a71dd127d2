package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	httpadp "privlend-backend/internal/adapter/http"
	ledgeradapter "privlend-backend/internal/adapter/ledger"
	"privlend-backend/internal/adapter/middleware"
	"privlend-backend/internal/adapter/verifier"
	"privlend-backend/internal/config"
	"privlend-backend/internal/infrastructure/cache"
	"privlend-backend/internal/infrastructure/db"
	"privlend-backend/internal/usecase/commitment"
	"privlend-backend/internal/usecase/deadline"
	"privlend-backend/internal/usecase/disclosure"
	"privlend-backend/internal/usecase/discovery"
	"privlend-backend/internal/usecase/lending"
	"privlend-backend/internal/usecase/proofgate"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := openDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := ledgeradapter.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	led := ledgeradapter.NewGormLedger(gdb)

	// The static verifier stands in for the external groth16 service; it is
	// seeded through proof registration in development setups.
	gate := proofgate.NewUsecase(ledgeradapter.NewProofRepository(gdb), verifier.NewStatic(), cfg.VerifyTimeout)

	lendOpts := []lending.Option{}
	if !cfg.AllowLateRepayment {
		lendOpts = append(lendOpts, lending.RejectLateRepayment())
	}
	lend := lending.NewUsecase(led, gate, lendOpts...)

	index := discovery.NewIndex(led, cfg.IndexLookupTimeout)
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	if n, err := index.WarmFromEvents(warmCtx); err != nil {
		log.Printf("index warm-up failed, continuing cold: %v", err)
	} else {
		log.Printf("index warmed with %d entries from the event log", n)
	}
	cancelWarm()

	var sched *deadline.Scheduler
	if cfg.SchedulerInterval > 0 {
		sched = deadline.NewScheduler(led, index, cfg.SchedulerInterval, nil)
		sched.Start()
		defer sched.Stop()
	}

	h := httpadp.NewHandler(lend, gate, index, disclosure.NewUsecase(led), commitment.NewService())

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())
	e.Use(middleware.Idempotency(rdb, cfg.IdempTTL()))
	h.Register(e)

	go func() {
		addr := ":" + cfg.AppPort
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return db.OpenSQLite(cfg.SQLitePath)
	}
	return db.OpenMySQL(cfg.MySQLDSN())
}
