// Pacote workflow implementa o motor de adjudicação de impugnações: máquina de
// fases, validação de precondições e trilha de auditoria de cada transição.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/ids"
)

var (
	ErrEntradaInvalida         = errors.New("entrada invalida")
	ErrFaseInvalida            = errors.New("operacao nao permitida na fase atual")
	ErrImpugnacaoNaoEncontrada = errors.New("impugnacao nao encontrada")
	ErrRecursoNaoEncontrado    = errors.New("recurso nao encontrado")
	ErrPrazoDefesaExpirado     = errors.New("prazo de defesa expirado")
	ErrJanelaRecursoExpirada   = errors.New("janela recursal expirada")
	ErrDefesaJaApresentada     = errors.New("defesa ja apresentada pelo impugnado")
	ErrParecerObrigatorio      = errors.New("julgamento exige ao menos um parecer")
	ErrJaEncerrada             = errors.New("impugnacao ja encerrada")
)

// Engine concentra as regras do processo e delega persistência ao repositório.
// Cada mutação é atômica: agregado e eventos de timeline na mesma transação;
// falha de validação não deixa nenhum efeito persistido.
type Engine struct {
	impugnacoes   domain.ImpugnacaoRepository
	timeline      domain.TimelineRepository
	protocolos    domain.GeradorProtocolo
	notificador   domain.Notificador
	clock         domain.Clock
	ids           *ids.Generator
	logger        *slog.Logger
	janelaRecurso time.Duration
}

func NewEngine(
	impugnacoes domain.ImpugnacaoRepository,
	timeline domain.TimelineRepository,
	protocolos domain.GeradorProtocolo,
	notificador domain.Notificador,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
	janelaRecurso time.Duration,
) *Engine {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		impugnacoes:   impugnacoes,
		timeline:      timeline,
		protocolos:    protocolos,
		notificador:   notificador,
		clock:         clock,
		ids:           idsGen,
		logger:        logger,
		janelaRecurso: janelaRecurso,
	}
}

// Registrar cria a impugnação na fase de registro e atribui o protocolo.
func (e *Engine) Registrar(ctx context.Context, ator domain.Ator, nova domain.Impugnacao) (domain.Impugnacao, error) {
	if !nova.Tipo.Valido() {
		return domain.Impugnacao{}, fmt.Errorf("%w: tipo desconhecido %q", ErrEntradaInvalida, nova.Tipo)
	}
	if nova.Fundamentacao == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: fundamentacao obrigatoria", ErrEntradaInvalida)
	}
	if nova.Pedido == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: pedido obrigatorio", ErrEntradaInvalida)
	}
	if nova.Tipo.ExigeAlvo() {
		// Impugnação de chapa ou candidatura aponta exatamente um alvo.
		if (nova.ChapaID == "") == (nova.CandidatoID == "") {
			return domain.Impugnacao{}, fmt.Errorf("%w: informe chapa ou candidato, nunca ambos", ErrEntradaInvalida)
		}
	}

	agora := e.clock.Agora()
	seq, err := e.protocolos.Proximo(ctx, agora.Year())
	if err != nil {
		return domain.Impugnacao{}, fmt.Errorf("workflow: gerar protocolo: %w", err)
	}

	nova.ID = domain.ImpugnacaoID(e.ids.New())
	nova.Protocolo = fmt.Sprintf("IMP-%04d-%06d", agora.Year(), seq)
	nova.Fase = domain.FaseRegistro
	nova.Status = domain.StatusPendente
	nova.ImpugnanteID = ator.ID
	nova.Versao = 1
	nova.CriadoEm = agora
	nova.AtualizadoEm = agora
	nova.Defesas = nil
	nova.Pareceres = nil
	nova.Recursos = nil
	e.carimbarAnexos(nova.Anexos, agora)

	evento := e.novoEvento(nova.ID, domain.EventoRegistro,
		fmt.Sprintf("impugnacao registrada sob protocolo %s", nova.Protocolo), ator, agora)

	criada, err := e.impugnacoes.Criar(ctx, nova, evento)
	if err != nil {
		return domain.Impugnacao{}, err
	}

	e.notificar(ctx, criada, domain.EventoRegistro, agora)
	return criada, nil
}

// IniciarAnalise move a impugnação do registro para a análise de admissibilidade.
func (e *Engine) IniciarAnalise(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseRegistro {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseRegistro, imp.Fase)
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	imp.Fase = domain.FaseAnaliseInicial
	imp.Status = domain.StatusEmAnalise
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoAnaliseIniciada, "analise inicial iniciada", ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoAnaliseIniciada, agora, evento)
}

// SolicitarDefesa abre a fase de defesa com o prazo informado.
func (e *Engine) SolicitarDefesa(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, prazo time.Time) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseAnaliseInicial {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseAnaliseInicial, imp.Fase)
	}

	agora := e.clock.Agora()
	if !prazo.After(agora) {
		return domain.Impugnacao{}, fmt.Errorf("%w: prazo de defesa deve ser futuro", ErrEntradaInvalida)
	}

	versao := imp.Versao
	imp.Fase = domain.FaseDefesa
	imp.PrazoDefesa = &prazo
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoDefesaSolicitada,
		fmt.Sprintf("defesa solicitada com prazo ate %s", prazo.Format(time.RFC3339)), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoDefesaSolicitada, agora, evento)
}

// ApresentarDefesa registra a manifestação do impugnado. Defesa é prova, não
// configuração: uma segunda tentativa do mesmo defensor é rejeitada, nunca sobrescrita.
func (e *Engine) ApresentarDefesa(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, conteudo string, anexos []domain.Anexo) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseDefesa {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseDefesa, imp.Fase)
	}
	if conteudo == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: conteudo da defesa obrigatorio", ErrEntradaInvalida)
	}

	agora := e.clock.Agora()
	// Defesa apresentada exatamente no prazo ainda vale; um instante depois, não.
	if imp.PrazoDefesa != nil && agora.After(*imp.PrazoDefesa) {
		return domain.Impugnacao{}, ErrPrazoDefesaExpirado
	}
	for i := range imp.Defesas {
		if imp.Defesas[i].DefensorID == ator.ID {
			return domain.Impugnacao{}, ErrDefesaJaApresentada
		}
	}

	e.carimbarAnexos(anexos, agora)
	defesa := domain.Defesa{
		ID:           domain.DefesaID(e.ids.New()),
		ImpugnacaoID: imp.ID,
		DefensorID:   ator.ID,
		Conteudo:     conteudo,
		CriadoEm:     agora,
		Anexos:       anexos,
	}

	versao := imp.Versao
	imp.Defesas = append(imp.Defesas, defesa)
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoDefesaApresentada,
		fmt.Sprintf("defesa apresentada pelo impugnado %s", ator.ID), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoDefesaApresentada, agora, evento)
}

// EmitirParecer acrescenta a recomendação do relator; o primeiro parecer encerra
// a janela de defesa e move a impugnação para a fase de parecer.
func (e *Engine) EmitirParecer(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, conteudo string, recomendacao domain.Status) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseDefesa && imp.Fase != domain.FaseParecer {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s ou %s, fase atual %s", ErrFaseInvalida, domain.FaseDefesa, domain.FaseParecer, imp.Fase)
	}
	if conteudo == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: conteudo do parecer obrigatorio", ErrEntradaInvalida)
	}
	if !recomendacao.Terminal() {
		return domain.Impugnacao{}, fmt.Errorf("%w: recomendacao %q nao e um resultado de merito", ErrEntradaInvalida, recomendacao)
	}

	agora := e.clock.Agora()
	parecer := domain.Parecer{
		ID:           domain.ParecerID(e.ids.New()),
		ImpugnacaoID: imp.ID,
		AutorID:      ator.ID,
		Conteudo:     conteudo,
		Recomendacao: recomendacao,
		CriadoEm:     agora,
	}

	versao := imp.Versao
	imp.Pareceres = append(imp.Pareceres, parecer)
	imp.Fase = domain.FaseParecer
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoParecerEmitido,
		fmt.Sprintf("parecer emitido com recomendacao %s", recomendacao), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoParecerEmitido, agora, evento)
}

// EncaminharParaJulgamento fecha a instrução; exige ao menos um parecer emitido.
func (e *Engine) EncaminharParaJulgamento(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseParecer {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseParecer, imp.Fase)
	}
	if len(imp.Pareceres) == 0 {
		return domain.Impugnacao{}, ErrParecerObrigatorio
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	imp.Fase = domain.FaseJulgamento
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoEncaminhadaJulgamento, "encaminhada para julgamento", ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoEncaminhadaJulgamento, agora, evento)
}

// Julgar profere a decisão de mérito e encerra o processo principal. Os campos
// de decisão são gravados uma única vez.
func (e *Engine) Julgar(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, resultado domain.Status, fundamentacao string) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseJulgamento {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseJulgamento, imp.Fase)
	}
	if !resultado.Terminal() {
		return domain.Impugnacao{}, fmt.Errorf("%w: resultado %q nao e um desfecho de merito", ErrEntradaInvalida, resultado)
	}
	if fundamentacao == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: fundamentacao da decisao obrigatoria", ErrEntradaInvalida)
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	imp.Status = resultado
	imp.Decisao = resultado
	imp.DecisaoFundamentacao = fundamentacao
	imp.DecisaoData = &agora
	imp.Fase = domain.FaseEncerrada
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoJulgada,
		fmt.Sprintf("impugnacao julgada %s", resultado), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoJulgada, agora, evento)
}

// InterporRecurso reabre o processo dentro da janela recursal contada da última decisão.
func (e *Engine) InterporRecurso(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, fundamentacao string, anexos []domain.Anexo) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseEncerrada {
		return domain.Impugnacao{}, fmt.Errorf("%w: recurso exige impugnacao encerrada, fase atual %s", ErrFaseInvalida, imp.Fase)
	}
	if fundamentacao == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: fundamentacao do recurso obrigatoria", ErrEntradaInvalida)
	}

	ultima := imp.UltimaDecisao()
	if ultima == nil {
		return domain.Impugnacao{}, fmt.Errorf("%w: nao ha decisao a recorrer", ErrFaseInvalida)
	}

	agora := e.clock.Agora()
	if agora.After(ultima.Add(e.janelaRecurso)) {
		return domain.Impugnacao{}, ErrJanelaRecursoExpirada
	}

	e.carimbarAnexos(anexos, agora)
	recurso := domain.Recurso{
		ID:            domain.RecursoID(e.ids.New()),
		ImpugnacaoID:  imp.ID,
		RecorrenteID:  ator.ID,
		Fundamentacao: fundamentacao,
		Status:        domain.StatusRecursoPendente,
		CriadoEm:      agora,
		Anexos:        anexos,
	}

	versao := imp.Versao
	imp.Recursos = append(imp.Recursos, recurso)
	imp.Fase = domain.FaseRecurso
	imp.Status = domain.StatusEmRecurso
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoRecursoInterposto,
		fmt.Sprintf("recurso %s interposto por %s", recurso.ID, ator.ID), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoRecursoInterposto, agora, evento)
}

// JulgarRecurso decide o recurso pendente e devolve a impugnação ao estado encerrado.
func (e *Engine) JulgarRecurso(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, recursoID domain.RecursoID, decisao domain.DecisaoRecurso, fundamentacao string) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Fase != domain.FaseRecurso {
		return domain.Impugnacao{}, fmt.Errorf("%w: esperava %s, fase atual %s", ErrFaseInvalida, domain.FaseRecurso, imp.Fase)
	}
	if !decisao.Valida() {
		return domain.Impugnacao{}, fmt.Errorf("%w: decisao de recurso %q desconhecida", ErrEntradaInvalida, decisao)
	}
	if fundamentacao == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: fundamentacao da decisao obrigatoria", ErrEntradaInvalida)
	}

	idx := -1
	for i := range imp.Recursos {
		if imp.Recursos[i].ID == recursoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Impugnacao{}, ErrRecursoNaoEncontrado
	}
	if imp.Recursos[idx].Status == domain.StatusRecursoJulgado {
		return domain.Impugnacao{}, fmt.Errorf("%w: recurso %s ja julgado", ErrFaseInvalida, recursoID)
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	imp.Recursos[idx].Status = domain.StatusRecursoJulgado
	imp.Recursos[idx].Decisao = decisao
	imp.Recursos[idx].DecisaoFundamentacao = fundamentacao
	imp.Recursos[idx].DecisaoData = &agora

	imp.Status = resultadoAposRecurso(imp.Decisao, decisao)
	imp.Fase = domain.FaseEncerrada
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoRecursoJulgado,
		fmt.Sprintf("recurso %s julgado %s", recursoID, decisao), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoRecursoJulgado, agora, evento)
}

// Arquivar congela a impugnação na fase atual (retirada administrativa).
func (e *Engine) Arquivar(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, motivo string) (domain.Impugnacao, error) {
	imp, err := e.carregar(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if motivo == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: motivo do arquivamento obrigatorio", ErrEntradaInvalida)
	}
	if imp.Encerrada() {
		return domain.Impugnacao{}, ErrJaEncerrada
	}
	if imp.Arquivada() {
		return domain.Impugnacao{}, fmt.Errorf("%w: impugnacao ja arquivada", ErrFaseInvalida)
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	// A fase permanece onde estava: o arquivamento é um desvio, não uma progressão.
	imp.Status = domain.StatusArquivada
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoArquivada,
		fmt.Sprintf("impugnacao arquivada: %s", motivo), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoArquivada, agora, evento)
}

// DesignarRelator atribui o relator responsável. Repetir o mesmo relator é
// idempotente: nenhum novo estado e nenhum evento extra na timeline.
func (e *Engine) DesignarRelator(ctx context.Context, ator domain.Ator, id domain.ImpugnacaoID, relatorID string) (domain.Impugnacao, error) {
	imp, err := e.carregarMutavel(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if relatorID == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: relator obrigatorio", ErrEntradaInvalida)
	}
	if imp.Encerrada() {
		return domain.Impugnacao{}, ErrJaEncerrada
	}
	if imp.RelatorID == relatorID {
		return imp, nil
	}

	agora := e.clock.Agora()
	versao := imp.Versao
	imp.RelatorID = relatorID
	imp.AtualizadoEm = agora

	evento := e.novoEvento(imp.ID, domain.EventoRelatorDesignado,
		fmt.Sprintf("relator %s designado", relatorID), ator, agora)
	return e.salvarENotificar(ctx, imp, versao, domain.EventoRelatorDesignado, agora, evento)
}

// BuscarPorID devolve o agregado completo; a resposta do repositório é a
// autoridade, nunca o estado previsto pelo cliente.
func (e *Engine) BuscarPorID(ctx context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	return e.carregar(ctx, id)
}

func (e *Engine) Listar(ctx context.Context, filtro domain.FiltroImpugnacao) ([]domain.Impugnacao, error) {
	return e.impugnacoes.Listar(ctx, filtro)
}

func (e *Engine) Timeline(ctx context.Context, id domain.ImpugnacaoID) ([]domain.EventoTimeline, error) {
	if _, err := e.carregar(ctx, id); err != nil {
		return nil, err
	}
	return e.timeline.ListarPorImpugnacao(ctx, id)
}

// Estatisticas agrega distribuições por status e por fase para o serviço de relatórios.
func (e *Engine) Estatisticas(ctx context.Context) (domain.EstatisticasImpugnacao, error) {
	porStatus, err := e.impugnacoes.ContarPorStatus(ctx)
	if err != nil {
		return domain.EstatisticasImpugnacao{}, err
	}
	porFase, err := e.impugnacoes.ContarPorFase(ctx)
	if err != nil {
		return domain.EstatisticasImpugnacao{}, err
	}

	var total int64
	for _, n := range porStatus {
		total += n
	}

	resultado := domain.EstatisticasImpugnacao{
		Total:     total,
		PorStatus: distribuicao(porStatus, total),
		PorFase:   distribuicao(porFase, total),
	}
	return resultado, nil
}

func distribuicao[K ~string](contagens map[K]int64, total int64) []domain.Estatistica {
	chaves := make([]string, 0, len(contagens))
	for chave := range contagens {
		chaves = append(chaves, string(chave))
	}
	sort.Strings(chaves)

	resultado := make([]domain.Estatistica, len(chaves))
	for i, chave := range chaves {
		n := contagens[K(chave)]
		var pct float64
		if total > 0 {
			pct = (float64(n) / float64(total)) * 100
		}
		resultado[i] = domain.Estatistica{Chave: chave, Total: n, Percentual: pct}
	}
	return resultado
}

func (e *Engine) carregar(ctx context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	if id == "" {
		return domain.Impugnacao{}, fmt.Errorf("%w: id obrigatorio", ErrEntradaInvalida)
	}
	imp, err := e.impugnacoes.BuscarPorID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Impugnacao{}, ErrImpugnacaoNaoEncontrada
		}
		return domain.Impugnacao{}, err
	}
	return imp, nil
}

// carregarMutavel rejeita mutações sobre registros arquivados: a fase congelada
// coincidiria com a precondição de algumas operações e furaria o congelamento.
func (e *Engine) carregarMutavel(ctx context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	imp, err := e.carregar(ctx, id)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	if imp.Arquivada() {
		return domain.Impugnacao{}, fmt.Errorf("%w: impugnacao arquivada", ErrFaseInvalida)
	}
	return imp, nil
}

func (e *Engine) salvarENotificar(ctx context.Context, imp domain.Impugnacao, versaoEsperada int64, tipo domain.TipoEvento, agora time.Time, eventos ...domain.EventoTimeline) (domain.Impugnacao, error) {
	salva, err := e.impugnacoes.Salvar(ctx, imp, versaoEsperada, eventos...)
	if err != nil {
		return domain.Impugnacao{}, err
	}
	e.notificar(ctx, salva, tipo, agora)
	return salva, nil
}

func (e *Engine) notificar(ctx context.Context, imp domain.Impugnacao, tipo domain.TipoEvento, agora time.Time) {
	if e.notificador == nil {
		return
	}
	evento := domain.NotificacaoEvento{
		ImpugnacaoID: imp.ID,
		Protocolo:    imp.Protocolo,
		Evento:       tipo,
		Fase:         imp.Fase,
		Status:       imp.Status,
		OcorridoEm:   agora,
	}
	if err := e.notificador.Notificar(ctx, evento); err != nil {
		// Notificação é melhor esforço: registrar e seguir.
		e.logger.Warn("falha ao publicar notificacao", "impugnacao", imp.ID, "evento", tipo, "err", err)
	}
}

func (e *Engine) novoEvento(id domain.ImpugnacaoID, tipo domain.TipoEvento, descricao string, ator domain.Ator, agora time.Time) domain.EventoTimeline {
	return domain.EventoTimeline{
		ID:           domain.EventoID(e.ids.New()),
		ImpugnacaoID: id,
		Evento:       tipo,
		Descricao:    descricao,
		AutorID:      ator.ID,
		CriadoEm:     agora,
	}
}

func (e *Engine) carimbarAnexos(anexos []domain.Anexo, agora time.Time) {
	for i := range anexos {
		if anexos[i].ID == "" {
			anexos[i].ID = domain.AnexoID(e.ids.New())
		}
		anexos[i].CriadoEm = agora
	}
}

// resultadoAposRecurso calcula o status final após o julgamento do recurso:
// negado restaura a decisão original, provido inverte o mérito e provimento
// parcial resulta em procedência parcial.
func resultadoAposRecurso(original domain.Status, decisao domain.DecisaoRecurso) domain.Status {
	switch decisao {
	case domain.RecursoNegado:
		return original
	case domain.RecursoParcialmenteProvido:
		return domain.StatusParcialmenteProcedente
	case domain.RecursoProvido:
		if original == domain.StatusProcedente {
			return domain.StatusImprocedente
		}
		return domain.StatusProcedente
	}
	return original
}

var _ domain.WorkflowService = (*Engine)(nil)
