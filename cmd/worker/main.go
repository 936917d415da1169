// Worker assíncrono que consome a fila de notificações, entrega no webhook e mantém métricas expostas.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaelcm/impugnacoes/internal/app/worker"
	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/clock"
	"github.com/rafaelcm/impugnacoes/internal/platform/config"
	"github.com/rafaelcm/impugnacoes/internal/platform/health"
	"github.com/rafaelcm/impugnacoes/internal/platform/logger"
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

	// Postgres entra aqui apenas para o readiness compartilhar o mesmo critério da API.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	// Redis é obrigatório aqui porque a fila de notificações vive sobre a mesma instância da API.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	fila := redisstorage.NewFila(redisClient, cfg.FilaKeyPrefix)
	clockSystem := clock.NewSystemClock()
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			// Metrics expõe observabilidade enquanto a goroutine principal consome a fila.
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	processor := worker.NewNotificacaoProcessor(nil, cfg.NotificacaoWebhook, clockSystem, logger.L())

	logger.Info("worker iniciado, aguardando notificacoes")
	err = fila.Consumir(ctx, func(ctx context.Context, evento domain.NotificacaoEvento) error {
		// Processamos evento a evento para manter a semântica de uma fila simples.
		if err := processor.Process(ctx, evento); err != nil {
			logger.Error("erro ao entregar notificacao", "impugnacao", evento.ImpugnacaoID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
