package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operacoesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "impugnacao_operacoes_total",
		Help: "Total de operacoes de workflow por operacao e resultado",
	}, []string{"operacao", "resultado"})

	notificacoesProcessadasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "impugnacao_notificacoes_processadas_total",
		Help: "Total de notificacoes entregues pelo worker",
	})

	notificacoesFalhasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "impugnacao_notificacoes_falhas_total",
		Help: "Total de notificacoes que falharam na entrega",
	})

	notificacaoDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "impugnacao_notificacao_duration_seconds",
		Help:    "Tempo para entregar uma notificacao no worker",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveOperacao(operacao, resultado string) {
	operacoesTotal.WithLabelValues(operacao, resultado).Inc()
}

func IncNotificacaoProcessada() {
	notificacoesProcessadasTotal.Inc()
}

func IncNotificacaoFalha() {
	notificacoesFalhasTotal.Inc()
}

func ObserveNotificacaoDuration(seconds float64) {
	notificacaoDuration.Observe(seconds)
}
