package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/stake-plus/legal-agent/src/agents/azure"
	"github.com/stake-plus/legal-agent/src/api/webserver"
	"github.com/stake-plus/legal-agent/src/config"
	"github.com/stake-plus/legal-agent/src/data"
	"github.com/stake-plus/legal-agent/src/logging"
	"github.com/stake-plus/legal-agent/src/query"
	"gorm.io/gorm"
)

const serviceName = "legal-agent"

func main() {
	boot := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), serviceName)
	if err := config.LoadEnvFiles(); err != nil {
		boot.Fatal().Err(err).Msg("load .env")
	}

	// The settings table is optional; without MYSQL_DSN everything comes from env.
	var db *gorm.DB
	if dsn, ok := data.GetMySQLDSN(); ok {
		var err error
		db, err = data.ConnectMySQL(dsn, boot)
		if err != nil {
			boot.Fatal().Err(err).Msg("db")
		}
	}

	cfg, err := config.Load(db)
	if err != nil {
		boot.Warn().Err(err).Msg("settings table unreadable, using environment")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []query.Option
	var ledger *data.OrphanThreads
	if cfg.RedisURL != "" {
		rdb, err := data.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
		ledger = data.NewOrphanThreads(rdb)
		opts = append(opts, query.WithOrphanLedger(ledger))
	}

	svc := query.NewService(cfg.Agent, log, opts...)
	if ledger != nil {
		go query.NewJanitor(svc, ledger, cfg.OrphanSweepInterval, log).Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           webserver.New(cfg.Server, svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http")
		}
	}()
	log.Info().Str("addr", httpSrv.Addr).Str("platform", cfg.Agent.Platform).Msg("legal-agent listening")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), cfg.Agent.CleanupTimeout+10*time.Second)
	defer cancelShut()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
