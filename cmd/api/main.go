// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaelcm/impugnacoes/internal/app/httpapi"
	"github.com/rafaelcm/impugnacoes/internal/app/workflow"
	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/clock"
	"github.com/rafaelcm/impugnacoes/internal/platform/config"
	"github.com/rafaelcm/impugnacoes/internal/platform/health"
	"github.com/rafaelcm/impugnacoes/internal/platform/ids"
	"github.com/rafaelcm/impugnacoes/internal/platform/logger"
	"github.com/rafaelcm/impugnacoes/internal/platform/migrations"
	"github.com/rafaelcm/impugnacoes/internal/platform/ratelimit"
	postgresstorage "github.com/rafaelcm/impugnacoes/internal/platform/storage/postgres"
	redisstorage "github.com/rafaelcm/impugnacoes/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}

	// Mantemos a conexão compartilhada em todo o ciclo para reaproveitar pool e checar readiness.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		// Rodamos migrations automáticas apenas se habilitado para evitar surpresas em produção.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	// Redis centraliza fila de notificações, gerador de protocolo e antiabuso.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	impugnacoes := postgresstorage.NewImpugnacaoRepository(db)
	timeline := postgresstorage.NewTimelineRepository(db)
	protocolos := redisstorage.NewProtocolos(redisClient, cfg.ProtocoloKeyPrefix)
	fila := redisstorage.NewFila(redisClient, cfg.FilaKeyPrefix)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	var antiabuso domain.Antiabuso = ratelimit.NewNoop()
	if cfg.RateLimitEnabled {
		window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
		antiabuso = ratelimit.NewRedisRateLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix)
	}

	// O motor agrega repositórios, protocolo e fila para guardar as regras do processo.
	motor := workflow.NewEngine(
		impugnacoes,
		timeline,
		protocolos,
		fila,
		clockSystem,
		idGen,
		logger.L(),
		cfg.JanelaRecurso(),
	)

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	// HTTP expõe API, health check e métricas que o Prometheus coleta.
	api := httpapi.New(motor, antiabuso, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("erro no servidor", "err", err)
	}
}
