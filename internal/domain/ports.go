package domain

import (
	"context"
	"time"
)

// FiltroImpugnacao restringe listagens; campos zerados são ignorados.
type FiltroImpugnacao struct {
	Fase   Fase
	Status Status
	Tipo   TipoImpugnacao
}

// EstatisticasImpugnacao é a visão agregada consumida pelo serviço de relatórios.
type EstatisticasImpugnacao struct {
	Total     int64         `json:"total"`
	PorStatus []Estatistica `json:"por_status"`
	PorFase   []Estatistica `json:"por_fase"`
}

// ImpugnacaoRepository persiste o agregado com concorrência otimista.
// Salvar grava o agregado e os eventos de timeline na MESMA transação:
// se a versão esperada divergir, devolve ErrConflito sem efeito colateral,
// e a decisão de repetir fica com o chamador.
type ImpugnacaoRepository interface {
	Criar(ctx context.Context, imp Impugnacao, evento EventoTimeline) (Impugnacao, error)
	BuscarPorID(ctx context.Context, id ImpugnacaoID) (Impugnacao, error)
	Salvar(ctx context.Context, imp Impugnacao, versaoEsperada int64, eventos ...EventoTimeline) (Impugnacao, error)
	Listar(ctx context.Context, filtro FiltroImpugnacao) ([]Impugnacao, error)
	ContarPorStatus(ctx context.Context) (map[Status]int64, error)
	ContarPorFase(ctx context.Context) (map[Fase]int64, error)
}

// TimelineRepository expõe a leitura da trilha de auditoria, ordenada pela sequência de commit.
type TimelineRepository interface {
	ListarPorImpugnacao(ctx context.Context, id ImpugnacaoID) ([]EventoTimeline, error)
}

// GeradorProtocolo devolve o próximo número sequencial do ano, único mesmo sob registro concorrente.
type GeradorProtocolo interface {
	Proximo(ctx context.Context, ano int) (int64, error)
}

// Notificador repassa eventos de fase ao gateway externo; melhor esforço, nunca
// bloqueia nem falha a operação de workflow.
type Notificador interface {
	Notificar(ctx context.Context, evento NotificacaoEvento) error
}

// FilaNotificacoes desacopla a publicação (API) do consumo (worker).
type FilaNotificacoes interface {
	Notificador
	Consumir(ctx context.Context, handler func(context.Context, NotificacaoEvento) error) error
}

// AnexoStore é o storage externo de documentos; o motor guarda apenas referências.
type AnexoStore interface {
	Guardar(ctx context.Context, conteudo []byte, nome string) (string, error)
	Buscar(ctx context.Context, ref string) ([]byte, error)
}

// Antiabuso limita registros abusivos de impugnações (rate limit por ator/origem).
type Antiabuso interface {
	Validar(ctx context.Context, ator Ator, origemIP string) error
}

type Clock interface {
	Agora() time.Time
}

// WorkflowService é o contrato do motor de workflow consumido pela camada HTTP.
type WorkflowService interface {
	Registrar(ctx context.Context, ator Ator, nova Impugnacao) (Impugnacao, error)
	IniciarAnalise(ctx context.Context, ator Ator, id ImpugnacaoID) (Impugnacao, error)
	SolicitarDefesa(ctx context.Context, ator Ator, id ImpugnacaoID, prazo time.Time) (Impugnacao, error)
	ApresentarDefesa(ctx context.Context, ator Ator, id ImpugnacaoID, conteudo string, anexos []Anexo) (Impugnacao, error)
	EmitirParecer(ctx context.Context, ator Ator, id ImpugnacaoID, conteudo string, recomendacao Status) (Impugnacao, error)
	EncaminharParaJulgamento(ctx context.Context, ator Ator, id ImpugnacaoID) (Impugnacao, error)
	Julgar(ctx context.Context, ator Ator, id ImpugnacaoID, resultado Status, fundamentacao string) (Impugnacao, error)
	InterporRecurso(ctx context.Context, ator Ator, id ImpugnacaoID, fundamentacao string, anexos []Anexo) (Impugnacao, error)
	JulgarRecurso(ctx context.Context, ator Ator, id ImpugnacaoID, recursoID RecursoID, decisao DecisaoRecurso, fundamentacao string) (Impugnacao, error)
	Arquivar(ctx context.Context, ator Ator, id ImpugnacaoID, motivo string) (Impugnacao, error)
	DesignarRelator(ctx context.Context, ator Ator, id ImpugnacaoID, relatorID string) (Impugnacao, error)

	BuscarPorID(ctx context.Context, id ImpugnacaoID) (Impugnacao, error)
	Listar(ctx context.Context, filtro FiltroImpugnacao) ([]Impugnacao, error)
	Timeline(ctx context.Context, id ImpugnacaoID) ([]EventoTimeline, error)
	Estatisticas(ctx context.Context) (EstatisticasImpugnacao, error)
}
