// Pacote httpapi expõe os handlers REST e traduz requisições HTTP para o motor
// de workflow de impugnações.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rafaelcm/impugnacoes/internal/app/workflow"
	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/metrics"
	"github.com/rafaelcm/impugnacoes/internal/platform/ratelimit"
)

const (
	headerAtorID    = "X-Ator-ID"
	headerAtorPapel = "X-Ator-Papel"
)

// API empacota handlers HTTP ligados ao motor de workflow, ao antiabuso e ao logger.
type API struct {
	service   domain.WorkflowService
	antiabuso domain.Antiabuso
	logger    *slog.Logger
}

func New(service domain.WorkflowService, antiabuso domain.Antiabuso, logger *slog.Logger) *API {
	return &API{service: service, antiabuso: antiabuso, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	// Mantemos as rotas centralizadas para facilitar testes e reuso em servidores diferentes.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/estatisticas", a.obterEstatisticas)
	mux.HandleFunc("/impugnacoes", a.handleImpugnacoes)
	mux.HandleFunc("/impugnacoes/", a.handleImpugnacaoDetalhes)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleImpugnacoes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.registrar(w, r)
	case http.MethodGet:
		a.listar(w, r)
	default:
		http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
	}
}

func (a *API) handleImpugnacaoDetalhes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/impugnacoes/")
	partes := strings.Split(path, "/")
	if len(partes) == 0 || partes[0] == "" {
		http.NotFound(w, r)
		return
	}

	id := domain.ImpugnacaoID(partes[0])

	switch {
	case len(partes) == 1 && r.Method == http.MethodGet:
		a.buscar(w, r, id)
	case len(partes) == 2 && partes[1] == "timeline" && r.Method == http.MethodGet:
		a.obterTimeline(w, r, id)
	case len(partes) == 2 && partes[1] == "analise" && r.Method == http.MethodPost:
		a.iniciarAnalise(w, r, id)
	case len(partes) == 3 && partes[1] == "defesa" && partes[2] == "solicitacao" && r.Method == http.MethodPost:
		a.solicitarDefesa(w, r, id)
	case len(partes) == 2 && partes[1] == "defesa" && r.Method == http.MethodPost:
		a.apresentarDefesa(w, r, id)
	case len(partes) == 2 && partes[1] == "parecer" && r.Method == http.MethodPost:
		a.emitirParecer(w, r, id)
	case len(partes) == 2 && partes[1] == "encaminhamento" && r.Method == http.MethodPost:
		a.encaminharParaJulgamento(w, r, id)
	case len(partes) == 2 && partes[1] == "julgamento" && r.Method == http.MethodPost:
		a.julgar(w, r, id)
	case len(partes) == 2 && partes[1] == "recursos" && r.Method == http.MethodPost:
		a.interporRecurso(w, r, id)
	case len(partes) == 4 && partes[1] == "recursos" && partes[3] == "julgamento" && r.Method == http.MethodPost:
		a.julgarRecurso(w, r, id, domain.RecursoID(partes[2]))
	case len(partes) == 2 && partes[1] == "arquivamento" && r.Method == http.MethodPost:
		a.arquivar(w, r, id)
	case len(partes) == 2 && partes[1] == "relator" && r.Method == http.MethodPut:
		a.designarRelator(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type anexoRequest struct {
	Nome string `json:"nome"`
	Ref  string `json:"ref"`
}

func converterAnexos(reqs []anexoRequest) []domain.Anexo {
	if len(reqs) == 0 {
		return nil
	}
	anexos := make([]domain.Anexo, 0, len(reqs))
	for _, r := range reqs {
		anexos = append(anexos, domain.Anexo{Nome: r.Nome, Ref: r.Ref})
	}
	return anexos
}

type registrarRequest struct {
	Tipo           string         `json:"tipo"`
	Fundamentacao  string         `json:"fundamentacao"`
	NormasVioladas string         `json:"normas_violadas"`
	Pedido         string         `json:"pedido"`
	ChapaID        string         `json:"chapa_id"`
	CandidatoID    string         `json:"candidato_id"`
	Anexos         []anexoRequest `json:"anexos"`
}

func (a *API) registrar(w http.ResponseWriter, r *http.Request) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req registrarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("registrar", "invalid_payload")
		a.logger.Warn("payload invalido ao registrar impugnacao", "err", err)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	if err := a.antiabuso.Validar(r.Context(), ator, origemIP(r)); err != nil {
		metrics.ObserveOperacao("registrar", "rate_limited")
		a.logger.Warn("registro bloqueado por rate limit", "ator", ator.ID, "err", err)
		responderErro(w, err)
		return
	}

	nova := domain.Impugnacao{
		Tipo:           domain.TipoImpugnacao(req.Tipo),
		Fundamentacao:  req.Fundamentacao,
		NormasVioladas: req.NormasVioladas,
		Pedido:         req.Pedido,
		ChapaID:        req.ChapaID,
		CandidatoID:    req.CandidatoID,
		Anexos:         converterAnexos(req.Anexos),
	}

	criada, err := a.service.Registrar(r.Context(), ator, nova)
	if err != nil {
		a.falhaOperacao(w, "registrar", err, "ator", ator.ID)
		return
	}

	metrics.ObserveOperacao("registrar", "ok")
	a.logger.Info("impugnacao registrada", "id", criada.ID, "protocolo", criada.Protocolo)
	responderJSON(w, http.StatusCreated, criada)
}

func (a *API) listar(w http.ResponseWriter, r *http.Request) {
	filtro := domain.FiltroImpugnacao{
		Fase:   domain.Fase(r.URL.Query().Get("fase")),
		Status: domain.Status(r.URL.Query().Get("status")),
		Tipo:   domain.TipoImpugnacao(r.URL.Query().Get("tipo")),
	}

	resultado, err := a.service.Listar(r.Context(), filtro)
	if err != nil {
		a.logger.Error("erro ao listar impugnacoes", "err", err)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, resultado)
}

func (a *API) buscar(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	imp, err := a.service.BuscarPorID(r.Context(), id)
	if err != nil {
		a.logger.Warn("erro ao buscar impugnacao", "err", err, "id", id)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, imp)
}

func (a *API) obterTimeline(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	eventos, err := a.service.Timeline(r.Context(), id)
	if err != nil {
		a.logger.Warn("erro ao obter timeline", "err", err, "id", id)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, eventos)
}

func (a *API) obterEstatisticas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "metodo nao suportado", http.StatusMethodNotAllowed)
		return
	}

	stats, err := a.service.Estatisticas(r.Context())
	if err != nil {
		a.logger.Error("erro ao calcular estatisticas", "err", err)
		responderErro(w, err)
		return
	}

	responderJSON(w, http.StatusOK, stats)
}

func (a *API) iniciarAnalise(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	a.mutacaoSimples(w, r, "iniciar_analise", func(ator domain.Ator) (domain.Impugnacao, error) {
		return a.service.IniciarAnalise(r.Context(), ator, id)
	})
}

type solicitarDefesaRequest struct {
	Prazo time.Time `json:"prazo"`
}

func (a *API) solicitarDefesa(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req solicitarDefesaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("solicitar_defesa", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.SolicitarDefesa(r.Context(), ator, id, req.Prazo)
	if err != nil {
		a.falhaOperacao(w, "solicitar_defesa", err, "id", id)
		return
	}

	metrics.ObserveOperacao("solicitar_defesa", "ok")
	responderJSON(w, http.StatusOK, imp)
}

type apresentarDefesaRequest struct {
	Conteudo string         `json:"conteudo"`
	Anexos   []anexoRequest `json:"anexos"`
}

func (a *API) apresentarDefesa(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req apresentarDefesaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("apresentar_defesa", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.ApresentarDefesa(r.Context(), ator, id, req.Conteudo, converterAnexos(req.Anexos))
	if err != nil {
		a.falhaOperacao(w, "apresentar_defesa", err, "id", id)
		return
	}

	metrics.ObserveOperacao("apresentar_defesa", "ok")
	responderJSON(w, http.StatusOK, imp)
}

type emitirParecerRequest struct {
	Conteudo     string `json:"conteudo"`
	Recomendacao string `json:"recomendacao"`
}

func (a *API) emitirParecer(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req emitirParecerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("emitir_parecer", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.EmitirParecer(r.Context(), ator, id, req.Conteudo, domain.Status(req.Recomendacao))
	if err != nil {
		a.falhaOperacao(w, "emitir_parecer", err, "id", id)
		return
	}

	metrics.ObserveOperacao("emitir_parecer", "ok")
	responderJSON(w, http.StatusOK, imp)
}

func (a *API) encaminharParaJulgamento(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	a.mutacaoSimples(w, r, "encaminhar_julgamento", func(ator domain.Ator) (domain.Impugnacao, error) {
		return a.service.EncaminharParaJulgamento(r.Context(), ator, id)
	})
}

type julgarRequest struct {
	Resultado     string `json:"resultado"`
	Fundamentacao string `json:"fundamentacao"`
}

func (a *API) julgar(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req julgarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("julgar", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.Julgar(r.Context(), ator, id, domain.Status(req.Resultado), req.Fundamentacao)
	if err != nil {
		a.falhaOperacao(w, "julgar", err, "id", id)
		return
	}

	metrics.ObserveOperacao("julgar", "ok")
	a.logger.Info("impugnacao julgada", "id", imp.ID, "resultado", imp.Decisao)
	responderJSON(w, http.StatusOK, imp)
}

type interporRecursoRequest struct {
	Fundamentacao string         `json:"fundamentacao"`
	Anexos        []anexoRequest `json:"anexos"`
}

func (a *API) interporRecurso(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req interporRecursoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("interpor_recurso", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.InterporRecurso(r.Context(), ator, id, req.Fundamentacao, converterAnexos(req.Anexos))
	if err != nil {
		a.falhaOperacao(w, "interpor_recurso", err, "id", id)
		return
	}

	metrics.ObserveOperacao("interpor_recurso", "ok")
	responderJSON(w, http.StatusOK, imp)
}

type julgarRecursoRequest struct {
	Decisao       string `json:"decisao"`
	Fundamentacao string `json:"fundamentacao"`
}

func (a *API) julgarRecurso(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID, recursoID domain.RecursoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req julgarRecursoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("julgar_recurso", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.JulgarRecurso(r.Context(), ator, id, recursoID, domain.DecisaoRecurso(req.Decisao), req.Fundamentacao)
	if err != nil {
		a.falhaOperacao(w, "julgar_recurso", err, "id", id, "recurso", recursoID)
		return
	}

	metrics.ObserveOperacao("julgar_recurso", "ok")
	responderJSON(w, http.StatusOK, imp)
}

type arquivarRequest struct {
	Motivo string `json:"motivo"`
}

func (a *API) arquivar(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req arquivarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("arquivar", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.Arquivar(r.Context(), ator, id, req.Motivo)
	if err != nil {
		a.falhaOperacao(w, "arquivar", err, "id", id)
		return
	}

	metrics.ObserveOperacao("arquivar", "ok")
	responderJSON(w, http.StatusOK, imp)
}

type designarRelatorRequest struct {
	RelatorID string `json:"relator_id"`
}

func (a *API) designarRelator(w http.ResponseWriter, r *http.Request, id domain.ImpugnacaoID) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	var req designarRelatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveOperacao("designar_relator", "invalid_payload")
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return
	}

	imp, err := a.service.DesignarRelator(r.Context(), ator, id, req.RelatorID)
	if err != nil {
		a.falhaOperacao(w, "designar_relator", err, "id", id)
		return
	}

	metrics.ObserveOperacao("designar_relator", "ok")
	responderJSON(w, http.StatusOK, imp)
}

// mutacaoSimples cobre as transições sem corpo de requisição.
func (a *API) mutacaoSimples(w http.ResponseWriter, r *http.Request, operacao string, fn func(domain.Ator) (domain.Impugnacao, error)) {
	ator, ok := a.extrairAtor(w, r)
	if !ok {
		return
	}

	imp, err := fn(ator)
	if err != nil {
		a.falhaOperacao(w, operacao, err)
		return
	}

	metrics.ObserveOperacao(operacao, "ok")
	responderJSON(w, http.StatusOK, imp)
}

func (a *API) falhaOperacao(w http.ResponseWriter, operacao string, err error, campos ...any) {
	resultado := resultadoFromError(err)
	metrics.ObserveOperacao(operacao, resultado)
	a.logger.Warn("falha na operacao de workflow",
		append([]any{"operacao", operacao, "err", err, "resultado", resultado}, campos...)...)
	responderErro(w, err)
}

// extrairAtor lê a identidade vinda do gateway de autenticação; sem ela a mutação é recusada.
func (a *API) extrairAtor(w http.ResponseWriter, r *http.Request) (domain.Ator, bool) {
	ator := domain.Ator{
		ID:    r.Header.Get(headerAtorID),
		Papel: r.Header.Get(headerAtorPapel),
	}
	if ator.ID == "" {
		http.Error(w, "ator nao identificado", http.StatusBadRequest)
		return domain.Ator{}, false
	}
	return ator, true
}

func origemIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = strings.Split(r.RemoteAddr, ":")[0]
	}
	return ip
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func responderErro(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, workflow.ErrEntradaInvalida):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrImpugnacaoNaoEncontrada), errors.Is(err, workflow.ErrRecursoNaoEncontrado):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrFaseInvalida), errors.Is(err, workflow.ErrParecerObrigatorio):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrPrazoDefesaExpirado), errors.Is(err, workflow.ErrJanelaRecursoExpirada):
		status = http.StatusGone
	case errors.Is(err, workflow.ErrJaEncerrada), errors.Is(err, workflow.ErrDefesaJaApresentada), errors.Is(err, domain.ErrConflito):
		status = http.StatusConflict
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		status = http.StatusTooManyRequests
	}

	responderJSON(w, status, map[string]string{"erro": err.Error()})
}

func resultadoFromError(err error) string {
	switch {
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, workflow.ErrEntradaInvalida):
		return "invalid"
	case errors.Is(err, workflow.ErrFaseInvalida):
		return "fase_invalida"
	case errors.Is(err, workflow.ErrImpugnacaoNaoEncontrada), errors.Is(err, workflow.ErrRecursoNaoEncontrado):
		return "not_found"
	case errors.Is(err, workflow.ErrPrazoDefesaExpirado), errors.Is(err, workflow.ErrJanelaRecursoExpirada):
		return "expirado"
	case errors.Is(err, domain.ErrConflito):
		return "conflito"
	default:
		return "error"
	}
}
