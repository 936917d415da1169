// Pacote worker contém a entrega assíncrona das notificações de workflow provenientes da fila Redis.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/metrics"
)

// NotificacaoProcessor entrega eventos de fase ao gateway externo via webhook
// e mantém as métricas de throughput do worker.
type NotificacaoProcessor struct {
	client     *http.Client
	webhookURL string
	clock      domain.Clock
	logger     *slog.Logger
}

func NewNotificacaoProcessor(client *http.Client, webhookURL string, clock domain.Clock, logger *slog.Logger) *NotificacaoProcessor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificacaoProcessor{
		client:     client,
		webhookURL: webhookURL,
		clock:      clock,
		logger:     logger,
	}
}

func (p *NotificacaoProcessor) Process(ctx context.Context, evento domain.NotificacaoEvento) error {
	start := time.Now()

	// Se o evento veio da fila sem carimbo de data, usamos o clock do worker para registrar a chegada.
	if evento.OcorridoEm.IsZero() {
		evento.OcorridoEm = p.clock.Agora()
	}

	if p.webhookURL == "" {
		// Sem gateway configurado, apenas registramos a entrega para inspeção nos logs.
		p.logger.Info("notificacao descartada sem webhook configurado",
			"impugnacao", evento.ImpugnacaoID, "evento", evento.Evento)
		metrics.IncNotificacaoProcessada()
		metrics.ObserveNotificacaoDuration(time.Since(start).Seconds())
		return nil
	}

	if err := p.entregar(ctx, evento); err != nil {
		metrics.IncNotificacaoFalha()
		return err
	}

	metrics.IncNotificacaoProcessada()
	metrics.ObserveNotificacaoDuration(time.Since(start).Seconds())

	p.logger.Info("notificacao entregue",
		"impugnacao", evento.ImpugnacaoID, "protocolo", evento.Protocolo, "evento", evento.Evento)
	return nil
}

func (p *NotificacaoProcessor) entregar(ctx context.Context, evento domain.NotificacaoEvento) error {
	corpo, err := json.Marshal(evento)
	if err != nil {
		return fmt.Errorf("worker: serializar notificacao %s: %w", evento.ImpugnacaoID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(corpo))
	if err != nil {
		return fmt.Errorf("worker: montar requisicao de notificacao: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("worker: entregar notificacao %s: %w", evento.ImpugnacaoID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker: gateway respondeu status %d para notificacao %s", resp.StatusCode, evento.ImpugnacaoID)
	}

	return nil
}
