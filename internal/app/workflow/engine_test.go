package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rafaelcm/impugnacoes/internal/domain"
	"github.com/rafaelcm/impugnacoes/internal/platform/ids"
)

var atorTeste = domain.Ator{ID: "admin-1", Papel: "COMISSAO"}

func TestEngineRegistrar(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)

	imp, err := engine.Registrar(context.Background(), atorTeste, domain.Impugnacao{
		Tipo:          domain.TipoChapa,
		ChapaID:       "chapa-9",
		Fundamentacao: "registro irregular de membros",
		Pedido:        "anular o registro da chapa",
	})
	if err != nil {
		t.Fatalf("esperava registrar sem erro, mas veio: %v", err)
	}

	if imp.ID == "" {
		t.Fatal("ID nao pode ser vazio")
	}
	if imp.Protocolo == "" {
		t.Fatal("protocolo deveria ter sido atribuido")
	}
	if imp.Fase != domain.FaseRegistro {
		t.Fatalf("fase esperada %s, veio %s", domain.FaseRegistro, imp.Fase)
	}
	if imp.Status != domain.StatusPendente {
		t.Fatalf("status esperado %s, veio %s", domain.StatusPendente, imp.Status)
	}

	eventos := deps.repo.eventosDe(imp.ID)
	if len(eventos) != 1 || eventos[0].Evento != domain.EventoRegistro {
		t.Fatalf("esperava exatamente um evento de registro, veio %v", eventos)
	}
	if deps.notificador.Len() != 1 {
		t.Fatalf("esperava uma notificacao publicada, veio %d", deps.notificador.Len())
	}
}

func TestEngineRegistrarEntradaInvalida(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	casos := []struct {
		nome string
		imp  domain.Impugnacao
	}{
		{"sem fundamentacao", domain.Impugnacao{Tipo: domain.TipoEleicao, Pedido: "anular"}},
		{"sem pedido", domain.Impugnacao{Tipo: domain.TipoEleicao, Fundamentacao: "fraude"}},
		{"tipo desconhecido", domain.Impugnacao{Tipo: "OUTRO", Fundamentacao: "x", Pedido: "y"}},
		{"chapa sem alvo", domain.Impugnacao{Tipo: domain.TipoChapa, Fundamentacao: "x", Pedido: "y"}},
		{"candidatura com dois alvos", domain.Impugnacao{Tipo: domain.TipoCandidatura, ChapaID: "c1", CandidatoID: "p1", Fundamentacao: "x", Pedido: "y"}},
	}

	for _, caso := range casos {
		if _, err := engine.Registrar(ctx, atorTeste, caso.imp); !errors.Is(err, ErrEntradaInvalida) {
			t.Fatalf("%s: esperava ErrEntradaInvalida, veio %v", caso.nome, err)
		}
	}

	if deps.notificador.Len() != 0 {
		t.Fatalf("entrada invalida nao deveria publicar notificacao, veio %d", deps.notificador.Len())
	}
}

func TestEngineRegistrarProtocoloUnicoSobConcorrencia(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)

	const n = 50
	protocolos := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			imp, err := engine.Registrar(context.Background(), atorTeste, domain.Impugnacao{
				Tipo:          domain.TipoEleicao,
				Fundamentacao: "edital irregular",
				Pedido:        "anular eleicao",
			})
			if err != nil {
				t.Errorf("registro concorrente falhou: %v", err)
				return
			}
			protocolos <- imp.Protocolo
		}()
	}
	wg.Wait()
	close(protocolos)

	vistos := make(map[string]bool, n)
	for p := range protocolos {
		if vistos[p] {
			t.Fatalf("protocolo duplicado sob concorrencia: %s", p)
		}
		vistos[p] = true
	}
	if len(vistos) != n {
		t.Fatalf("esperava %d protocolos distintos, veio %d", n, len(vistos))
	}
}

func TestEngineIniciarAnalise(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := registrar(t, engine)

	atualizada, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID)
	if err != nil {
		t.Fatalf("esperava iniciar analise sem erro: %v", err)
	}
	if atualizada.Fase != domain.FaseAnaliseInicial || atualizada.Status != domain.StatusEmAnalise {
		t.Fatalf("fase/status inesperados: %s/%s", atualizada.Fase, atualizada.Status)
	}

	// Repetir a operação fora da fase de registro deve falhar.
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("esperava ErrFaseInvalida, veio %v", err)
	}
}

func TestEngineSolicitarDefesaPrazoInvalido(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := registrar(t, engine)
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("iniciar analise: %v", err)
	}

	if _, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, deps.base.Add(-time.Hour)); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("prazo no passado deveria falhar com ErrEntradaInvalida, veio %v", err)
	}
	if _, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, deps.base); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("prazo igual a agora deveria falhar com ErrEntradaInvalida, veio %v", err)
	}

	atualizada, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, deps.base.Add(5*24*time.Hour))
	if err != nil {
		t.Fatalf("solicitar defesa: %v", err)
	}
	if atualizada.Fase != domain.FaseDefesa || atualizada.PrazoDefesa == nil {
		t.Fatalf("fase %s ou prazo ausente apos solicitacao", atualizada.Fase)
	}
}

func TestEngineApresentarDefesaLimiteDoPrazo(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	prazo := deps.base.Add(48 * time.Hour)
	imp := avancarAteDefesa(t, engine, prazo)

	// Exatamente no prazo ainda vale.
	deps.clock.Definir(prazo)
	defensor := domain.Ator{ID: "chapa-resp-1", Papel: "RESPONSAVEL"}
	atualizada, err := engine.ApresentarDefesa(ctx, defensor, imp.ID, "os membros atendem os requisitos", nil)
	if err != nil {
		t.Fatalf("defesa no limite do prazo deveria valer: %v", err)
	}
	if len(atualizada.Defesas) != 1 {
		t.Fatalf("esperava 1 defesa, veio %d", len(atualizada.Defesas))
	}

	// Um segundo defensor depois do prazo é barrado.
	deps.clock.Definir(prazo.Add(time.Second))
	outro := domain.Ator{ID: "chapa-resp-2", Papel: "RESPONSAVEL"}
	if _, err := engine.ApresentarDefesa(ctx, outro, imp.ID, "tardia", nil); !errors.Is(err, ErrPrazoDefesaExpirado) {
		t.Fatalf("esperava ErrPrazoDefesaExpirado, veio %v", err)
	}
}

func TestEngineApresentarDefesaDuplicada(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteDefesa(t, engine, deps.base.Add(72*time.Hour))
	defensor := domain.Ator{ID: "resp-1", Papel: "RESPONSAVEL"}

	if _, err := engine.ApresentarDefesa(ctx, defensor, imp.ID, "primeira manifestacao", nil); err != nil {
		t.Fatalf("primeira defesa: %v", err)
	}
	if _, err := engine.ApresentarDefesa(ctx, defensor, imp.ID, "segunda manifestacao", nil); !errors.Is(err, ErrDefesaJaApresentada) {
		t.Fatalf("defesa duplicada deveria falhar com ErrDefesaJaApresentada, veio %v", err)
	}

	// Outro impugnado ainda pode se manifestar.
	outra, err := engine.ApresentarDefesa(ctx, domain.Ator{ID: "resp-2"}, imp.ID, "manifestacao propria", nil)
	if err != nil {
		t.Fatalf("defesa de outro impugnado: %v", err)
	}
	if len(outra.Defesas) != 2 {
		t.Fatalf("esperava 2 defesas, veio %d", len(outra.Defesas))
	}
}

func TestEngineEmitirParecer(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteDefesa(t, engine, deps.base.Add(24*time.Hour))
	relator := domain.Ator{ID: "relator-1", Papel: "RELATOR"}

	if _, err := engine.EmitirParecer(ctx, relator, imp.ID, "recomendo rejeicao", domain.StatusPendente); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("recomendacao nao terminal deveria falhar, veio %v", err)
	}

	atualizada, err := engine.EmitirParecer(ctx, relator, imp.ID, "recomendo rejeicao", domain.StatusImprocedente)
	if err != nil {
		t.Fatalf("emitir parecer: %v", err)
	}
	if atualizada.Fase != domain.FaseParecer {
		t.Fatalf("primeiro parecer deveria mover para %s, veio %s", domain.FaseParecer, atualizada.Fase)
	}

	// Revisão colegiada: pareceres adicionais não mudam a fase de novo.
	segunda, err := engine.EmitirParecer(ctx, domain.Ator{ID: "relator-2"}, imp.ID, "acompanho o relator", domain.StatusImprocedente)
	if err != nil {
		t.Fatalf("segundo parecer: %v", err)
	}
	if segunda.Fase != domain.FaseParecer || len(segunda.Pareceres) != 2 {
		t.Fatalf("fase %s / %d pareceres apos segundo parecer", segunda.Fase, len(segunda.Pareceres))
	}
}

func TestEngineEncaminharParaJulgamentoSemParecer(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteDefesa(t, engine, deps.base.Add(24*time.Hour))

	// Direto da defesa o encaminhamento é barrado pela fase.
	if _, err := engine.EncaminharParaJulgamento(ctx, atorTeste, imp.ID); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("esperava ErrFaseInvalida, veio %v", err)
	}

	// Mesmo na fase de parecer, sem parecer emitido o encaminhamento falha.
	deps.repo.sobrescrever(imp.ID, func(atual *domain.Impugnacao) {
		atual.Fase = domain.FaseParecer
		atual.Pareceres = nil
	})
	if _, err := engine.EncaminharParaJulgamento(ctx, atorTeste, imp.ID); !errors.Is(err, ErrParecerObrigatorio) {
		t.Fatalf("esperava ErrParecerObrigatorio, veio %v", err)
	}
}

func TestEngineJulgarValidacoes(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)

	if _, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusEmAnalise, "x"); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("resultado nao terminal deveria falhar, veio %v", err)
	}
	if _, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, ""); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("fundamentacao vazia deveria falhar, veio %v", err)
	}

	decidida, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "provas insuficientes")
	if err != nil {
		t.Fatalf("julgar: %v", err)
	}
	if decidida.Fase != domain.FaseEncerrada || decidida.Status != domain.StatusImprocedente {
		t.Fatalf("fase/status apos julgamento: %s/%s", decidida.Fase, decidida.Status)
	}
	if decidida.DecisaoData == nil || decidida.Decisao != domain.StatusImprocedente {
		t.Fatal("campos de decisao deveriam estar preenchidos")
	}

	// Julgamento é único: a fase encerrada barra nova decisão.
	if _, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusProcedente, "reconsideracao"); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("segundo julgamento deveria falhar com ErrFaseInvalida, veio %v", err)
	}
}

func TestEngineFluxoCompletoComRecurso(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)
	decidida, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "provas insuficientes")
	if err != nil {
		t.Fatalf("julgar: %v", err)
	}

	deps.clock.Avancar(24 * time.Hour)
	recorrente := domain.Ator{ID: "impugnante-1", Papel: "PROFISSIONAL"}
	emRecurso, err := engine.InterporRecurso(ctx, recorrente, decidida.ID, "decisao ignorou documento essencial", nil)
	if err != nil {
		t.Fatalf("interpor recurso: %v", err)
	}
	if emRecurso.Fase != domain.FaseRecurso || emRecurso.Status != domain.StatusEmRecurso {
		t.Fatalf("fase/status apos recurso: %s/%s", emRecurso.Fase, emRecurso.Status)
	}

	recursoID := emRecurso.Recursos[0].ID
	if _, err := engine.JulgarRecurso(ctx, atorTeste, imp.ID, "recurso-inexistente", domain.RecursoProvido, "x"); !errors.Is(err, ErrRecursoNaoEncontrado) {
		t.Fatalf("recurso desconhecido deveria falhar, veio %v", err)
	}

	final, err := engine.JulgarRecurso(ctx, atorTeste, imp.ID, recursoID, domain.RecursoProvido, "documento comprova a irregularidade")
	if err != nil {
		t.Fatalf("julgar recurso: %v", err)
	}
	if final.Fase != domain.FaseEncerrada {
		t.Fatalf("recurso julgado deveria encerrar, fase %s", final.Fase)
	}
	if final.Status != domain.StatusProcedente {
		t.Fatalf("recurso provido deveria inverter o merito, status %s", final.Status)
	}
	if final.Recursos[0].Status != domain.StatusRecursoJulgado || final.Recursos[0].DecisaoData == nil {
		t.Fatal("recurso deveria constar como julgado com data de decisao")
	}

	// Segunda instância: nova janela conta da decisão do recurso.
	deps.clock.Avancar(48 * time.Hour)
	segunda, err := engine.InterporRecurso(ctx, domain.Ator{ID: "chapa-resp-1"}, imp.ID, "nulidade da segunda decisao", nil)
	if err != nil {
		t.Fatalf("segundo recurso dentro da nova janela: %v", err)
	}
	if len(segunda.Recursos) != 2 {
		t.Fatalf("esperava 2 recursos, veio %d", len(segunda.Recursos))
	}
}

func TestEngineCenarioA(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp, err := engine.Registrar(ctx, atorTeste, domain.Impugnacao{
		Tipo:          domain.TipoChapa,
		ChapaID:       "chapa-77",
		Fundamentacao: "composicao irregular",
		Pedido:        "anular o registro",
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("iniciar analise: %v", err)
	}
	if _, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, deps.base.Add(5*24*time.Hour)); err != nil {
		t.Fatalf("solicitar defesa: %v", err)
	}
	if _, err := engine.ApresentarDefesa(ctx, domain.Ator{ID: "resp-1"}, imp.ID, "contestacao", nil); err != nil {
		t.Fatalf("apresentar defesa: %v", err)
	}
	if _, err := engine.EmitirParecer(ctx, domain.Ator{ID: "relator-1"}, imp.ID, "recomendo rejeicao", domain.StatusImprocedente); err != nil {
		t.Fatalf("emitir parecer: %v", err)
	}
	if _, err := engine.EncaminharParaJulgamento(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("encaminhar: %v", err)
	}
	final, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "provas insuficientes")
	if err != nil {
		t.Fatalf("julgar: %v", err)
	}

	if final.Fase != domain.FaseEncerrada || final.Status != domain.StatusImprocedente {
		t.Fatalf("desfecho inesperado: %s/%s", final.Fase, final.Status)
	}

	eventos := deps.repo.eventosDe(imp.ID)
	esperados := []domain.TipoEvento{
		domain.EventoRegistro,
		domain.EventoAnaliseIniciada,
		domain.EventoDefesaSolicitada,
		domain.EventoDefesaApresentada,
		domain.EventoParecerEmitido,
		domain.EventoEncaminhadaJulgamento,
		domain.EventoJulgada,
	}
	if len(eventos) != len(esperados) {
		t.Fatalf("esperava %d eventos, veio %d", len(esperados), len(eventos))
	}
	for i, tipo := range esperados {
		if eventos[i].Evento != tipo {
			t.Fatalf("evento %d: esperava %s, veio %s", i, tipo, eventos[i].Evento)
		}
		if eventos[i].Sequencia != int64(i+1) {
			t.Fatalf("sequencia %d fora de ordem: %d", i, eventos[i].Sequencia)
		}
	}
}

func TestEngineCenarioBArquivamento(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := registrar(t, engine)
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("iniciar analise: %v", err)
	}

	if _, err := engine.Arquivar(ctx, atorTeste, imp.ID, ""); !errors.Is(err, ErrEntradaInvalida) {
		t.Fatalf("motivo vazio deveria falhar, veio %v", err)
	}

	arquivada, err := engine.Arquivar(ctx, atorTeste, imp.ID, "retirada pelo impugnante")
	if err != nil {
		t.Fatalf("arquivar: %v", err)
	}
	if arquivada.Status != domain.StatusArquivada {
		t.Fatalf("status esperado %s, veio %s", domain.StatusArquivada, arquivada.Status)
	}
	if arquivada.Fase != domain.FaseAnaliseInicial {
		t.Fatalf("arquivamento deveria congelar a fase, veio %s", arquivada.Fase)
	}

	// Nenhuma transição posterior é permitida.
	if _, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, deps.base.Add(time.Hour)); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("mutacao sobre arquivada deveria falhar, veio %v", err)
	}
	if _, err := engine.InterporRecurso(ctx, atorTeste, imp.ID, "recurso", nil); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("recurso sobre arquivada deveria falhar, veio %v", err)
	}
	if _, err := engine.Arquivar(ctx, atorTeste, imp.ID, "de novo"); !errors.Is(err, ErrFaseInvalida) {
		t.Fatalf("arquivar duas vezes deveria falhar, veio %v", err)
	}
}

func TestEngineArquivarEncerrada(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)
	if _, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusProcedente, "irregularidade comprovada"); err != nil {
		t.Fatalf("julgar: %v", err)
	}

	if _, err := engine.Arquivar(ctx, atorTeste, imp.ID, "tarde demais"); !errors.Is(err, ErrJaEncerrada) {
		t.Fatalf("arquivar encerrada deveria falhar com ErrJaEncerrada, veio %v", err)
	}
}

func TestEngineCenarioCJanelaRecursalExpirada(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)
	decidida, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "provas insuficientes")
	if err != nil {
		t.Fatalf("julgar: %v", err)
	}

	// Janela de 3 dias: um segundo além expira.
	deps.clock.Definir(decidida.DecisaoData.Add(3*24*time.Hour + time.Second))
	if _, err := engine.InterporRecurso(ctx, atorTeste, imp.ID, "recurso tardio", nil); !errors.Is(err, ErrJanelaRecursoExpirada) {
		t.Fatalf("esperava ErrJanelaRecursoExpirada, veio %v", err)
	}

	// Estado permanece intacto.
	atual, err := engine.BuscarPorID(ctx, imp.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if atual.Fase != domain.FaseEncerrada || len(atual.Recursos) != 0 {
		t.Fatalf("estado deveria permanecer encerrado sem recursos: %s/%d", atual.Fase, len(atual.Recursos))
	}
}

func TestEngineJanelaRecursalNoLimite(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)
	decidida, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "provas insuficientes")
	if err != nil {
		t.Fatalf("julgar: %v", err)
	}

	deps.clock.Definir(decidida.DecisaoData.Add(3 * 24 * time.Hour))
	if _, err := engine.InterporRecurso(ctx, atorTeste, imp.ID, "recurso no limite", nil); err != nil {
		t.Fatalf("recurso exatamente no limite da janela deveria valer: %v", err)
	}
}

func TestEngineDesignarRelatorIdempotente(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := registrar(t, engine)

	primeira, err := engine.DesignarRelator(ctx, atorTeste, imp.ID, "relator-1")
	if err != nil {
		t.Fatalf("designar relator: %v", err)
	}
	if primeira.RelatorID != "relator-1" {
		t.Fatalf("relator esperado relator-1, veio %s", primeira.RelatorID)
	}

	segunda, err := engine.DesignarRelator(ctx, atorTeste, imp.ID, "relator-1")
	if err != nil {
		t.Fatalf("repeticao idempotente: %v", err)
	}
	if segunda.Versao != primeira.Versao {
		t.Fatalf("repeticao nao deveria alterar versao: %d vs %d", segunda.Versao, primeira.Versao)
	}

	eventos := deps.repo.eventosDe(imp.ID)
	designacoes := 0
	for _, ev := range eventos {
		if ev.Evento == domain.EventoRelatorDesignado {
			designacoes++
		}
	}
	if designacoes != 1 {
		t.Fatalf("esperava exatamente 1 evento de designacao, veio %d", designacoes)
	}

	// Troca de relator gera novo evento.
	if _, err := engine.DesignarRelator(ctx, atorTeste, imp.ID, "relator-2"); err != nil {
		t.Fatalf("trocar relator: %v", err)
	}
	eventos = deps.repo.eventosDe(imp.ID)
	designacoes = 0
	for _, ev := range eventos {
		if ev.Evento == domain.EventoRelatorDesignado {
			designacoes++
		}
	}
	if designacoes != 2 {
		t.Fatalf("esperava 2 eventos de designacao apos troca, veio %d", designacoes)
	}
}

func TestEngineConflitoDeVersao(t *testing.T) {
	deps := newEngineDeps()
	repoConflito := &conflitoRepo{inner: deps.repo}
	engine := NewEngine(repoConflito, deps.repo, deps.protocolos, deps.notificador, deps.clock, deps.idGen, slog.New(slog.NewTextHandler(io.Discard, nil)), 3*24*time.Hour)
	ctx := context.Background()

	imp := avancarAteJulgamento(t, engine, deps)

	// Entre a carga e o salvamento, um escritor concorrente profere a decisão.
	repoConflito.aposCarga = func() {
		concorrente := newTestEngine(deps)
		if _, err := concorrente.Julgar(ctx, domain.Ator{ID: "admin-2"}, imp.ID, domain.StatusProcedente, "decisao concorrente"); err != nil {
			t.Errorf("escritor concorrente deveria vencer: %v", err)
		}
	}

	_, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusImprocedente, "decisao perdedora")
	if !errors.Is(err, domain.ErrConflito) {
		t.Fatalf("perdedor deveria receber ErrConflito, veio %v", err)
	}

	// A timeline registra exatamente uma decisão.
	eventos := deps.repo.eventosDe(imp.ID)
	julgamentos := 0
	for _, ev := range eventos {
		if ev.Evento == domain.EventoJulgada {
			julgamentos++
		}
	}
	if julgamentos != 1 {
		t.Fatalf("esperava exatamente 1 evento de julgamento, veio %d", julgamentos)
	}

	atual, err := deps.repo.BuscarPorID(ctx, imp.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if atual.Status != domain.StatusProcedente {
		t.Fatalf("estado final deveria ser do vencedor, veio %s", atual.Status)
	}
}

func TestEngineFaseNuncaPulaParecer(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := registrar(t, engine)

	// Nenhum atalho alcança o julgamento sem passar pelo parecer.
	tentativas := []func() error{
		func() error { _, err := engine.Julgar(ctx, atorTeste, imp.ID, domain.StatusProcedente, "x"); return err },
		func() error { _, err := engine.EncaminharParaJulgamento(ctx, atorTeste, imp.ID); return err },
		func() error {
			_, err := engine.EmitirParecer(ctx, atorTeste, imp.ID, "x", domain.StatusProcedente)
			return err
		},
		func() error { _, err := engine.ApresentarDefesa(ctx, atorTeste, imp.ID, "x", nil); return err },
		func() error { _, err := engine.InterporRecurso(ctx, atorTeste, imp.ID, "x", nil); return err },
	}
	for i, tentativa := range tentativas {
		if err := tentativa(); !errors.Is(err, ErrFaseInvalida) {
			t.Fatalf("tentativa %d deveria falhar com ErrFaseInvalida, veio %v", i, err)
		}
	}

	atual, err := engine.BuscarPorID(ctx, imp.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if atual.Fase != domain.FaseRegistro {
		t.Fatalf("fase deveria permanecer %s, veio %s", domain.FaseRegistro, atual.Fase)
	}
	if len(deps.repo.eventosDe(imp.ID)) != 1 {
		t.Fatal("falhas de validacao nao podem deixar eventos na timeline")
	}
}

func TestEngineEstatisticas(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		registrar(t, engine)
	}
	imp := registrar(t, engine)
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("iniciar analise: %v", err)
	}

	stats, err := engine.Estatisticas(ctx)
	if err != nil {
		t.Fatalf("estatisticas: %v", err)
	}
	if stats.Total != 4 {
		t.Fatalf("total esperado 4, veio %d", stats.Total)
	}

	var pendentes, emAnalise int64
	for _, e := range stats.PorStatus {
		switch domain.Status(e.Chave) {
		case domain.StatusPendente:
			pendentes = e.Total
		case domain.StatusEmAnalise:
			emAnalise = e.Total
		}
	}
	if pendentes != 3 || emAnalise != 1 {
		t.Fatalf("distribuicao inesperada: pendentes=%d em_analise=%d", pendentes, emAnalise)
	}
}

func TestEngineTimelineOrdenada(t *testing.T) {
	deps := newEngineDeps()
	engine := newTestEngine(deps)
	ctx := context.Background()

	imp := avancarAteDefesa(t, engine, deps.base.Add(24*time.Hour))

	eventos, err := engine.Timeline(ctx, imp.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	for i := 1; i < len(eventos); i++ {
		if eventos[i].Sequencia <= eventos[i-1].Sequencia {
			t.Fatalf("sequencia fora de ordem na posicao %d", i)
		}
	}

	if _, err := engine.Timeline(ctx, "inexistente"); !errors.Is(err, ErrImpugnacaoNaoEncontrada) {
		t.Fatalf("timeline de id desconhecido deveria falhar, veio %v", err)
	}
}

// === helpers e fakes ===

func registrar(t *testing.T, engine *Engine) domain.Impugnacao {
	t.Helper()
	imp, err := engine.Registrar(context.Background(), atorTeste, domain.Impugnacao{
		Tipo:          domain.TipoChapa,
		ChapaID:       "chapa-1",
		Fundamentacao: "irregularidade no registro",
		Pedido:        "anular o registro da chapa",
	})
	if err != nil {
		t.Fatalf("registrar impugnacao de teste: %v", err)
	}
	return imp
}

func avancarAteDefesa(t *testing.T, engine *Engine, prazo time.Time) domain.Impugnacao {
	t.Helper()
	ctx := context.Background()
	imp := registrar(t, engine)
	if _, err := engine.IniciarAnalise(ctx, atorTeste, imp.ID); err != nil {
		t.Fatalf("iniciar analise: %v", err)
	}
	atualizada, err := engine.SolicitarDefesa(ctx, atorTeste, imp.ID, prazo)
	if err != nil {
		t.Fatalf("solicitar defesa: %v", err)
	}
	return atualizada
}

func avancarAteJulgamento(t *testing.T, engine *Engine, deps engineDeps) domain.Impugnacao {
	t.Helper()
	ctx := context.Background()
	imp := avancarAteDefesa(t, engine, deps.clock.Agora().Add(24*time.Hour))
	if _, err := engine.ApresentarDefesa(ctx, domain.Ator{ID: "resp-1"}, imp.ID, "contestacao", nil); err != nil {
		t.Fatalf("apresentar defesa: %v", err)
	}
	if _, err := engine.EmitirParecer(ctx, domain.Ator{ID: "relator-1"}, imp.ID, "recomendo rejeicao", domain.StatusImprocedente); err != nil {
		t.Fatalf("emitir parecer: %v", err)
	}
	atualizada, err := engine.EncaminharParaJulgamento(ctx, atorTeste, imp.ID)
	if err != nil {
		t.Fatalf("encaminhar: %v", err)
	}
	return atualizada
}

type engineDeps struct {
	repo        *inMemoryImpugnacaoRepo
	protocolos  *seqProtocolos
	notificador *recordingNotificador
	clock       *staticClock
	idGen       *ids.Generator
	base        time.Time
}

func newEngineDeps() engineDeps {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return engineDeps{
		repo:        newInMemoryImpugnacaoRepo(),
		protocolos:  &seqProtocolos{},
		notificador: &recordingNotificador{},
		clock:       &staticClock{now: base},
		idGen:       ids.NewGenerator(),
		base:        base,
	}
}

func newTestEngine(deps engineDeps) *Engine {
	return NewEngine(
		deps.repo,
		deps.repo,
		deps.protocolos,
		deps.notificador,
		deps.clock,
		deps.idGen,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		3*24*time.Hour,
	)
}

type inMemoryImpugnacaoRepo struct {
	mu      sync.Mutex
	data    map[domain.ImpugnacaoID]domain.Impugnacao
	eventos map[domain.ImpugnacaoID][]domain.EventoTimeline
}

func newInMemoryImpugnacaoRepo() *inMemoryImpugnacaoRepo {
	return &inMemoryImpugnacaoRepo{
		data:    make(map[domain.ImpugnacaoID]domain.Impugnacao),
		eventos: make(map[domain.ImpugnacaoID][]domain.EventoTimeline),
	}
}

func (r *inMemoryImpugnacaoRepo) Criar(_ context.Context, imp domain.Impugnacao, evento domain.EventoTimeline) (domain.Impugnacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existente := range r.data {
		if existente.Protocolo == imp.Protocolo {
			return domain.Impugnacao{}, fmt.Errorf("protocolo duplicado: %s", imp.Protocolo)
		}
	}
	r.data[imp.ID] = copiar(imp)
	evento.Sequencia = 1
	r.eventos[imp.ID] = []domain.EventoTimeline{evento}
	return copiar(imp), nil
}

func (r *inMemoryImpugnacaoRepo) BuscarPorID(_ context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.data[id]
	if !ok {
		return domain.Impugnacao{}, domain.ErrNotFound
	}
	return copiar(imp), nil
}

func (r *inMemoryImpugnacaoRepo) Salvar(_ context.Context, imp domain.Impugnacao, versaoEsperada int64, eventos ...domain.EventoTimeline) (domain.Impugnacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	atual, ok := r.data[imp.ID]
	if !ok {
		return domain.Impugnacao{}, domain.ErrNotFound
	}
	if atual.Versao != versaoEsperada {
		return domain.Impugnacao{}, domain.ErrConflito
	}
	imp.Versao = versaoEsperada + 1
	r.data[imp.ID] = copiar(imp)

	seq := int64(len(r.eventos[imp.ID]))
	for _, ev := range eventos {
		seq++
		ev.Sequencia = seq
		r.eventos[imp.ID] = append(r.eventos[imp.ID], ev)
	}
	return copiar(imp), nil
}

func (r *inMemoryImpugnacaoRepo) Listar(_ context.Context, filtro domain.FiltroImpugnacao) ([]domain.Impugnacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var resultado []domain.Impugnacao
	for _, imp := range r.data {
		if filtro.Fase != "" && imp.Fase != filtro.Fase {
			continue
		}
		if filtro.Status != "" && imp.Status != filtro.Status {
			continue
		}
		if filtro.Tipo != "" && imp.Tipo != filtro.Tipo {
			continue
		}
		resultado = append(resultado, copiar(imp))
	}
	return resultado, nil
}

func (r *inMemoryImpugnacaoRepo) ContarPorStatus(_ context.Context) (map[domain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contagem := make(map[domain.Status]int64)
	for _, imp := range r.data {
		contagem[imp.Status]++
	}
	return contagem, nil
}

func (r *inMemoryImpugnacaoRepo) ContarPorFase(_ context.Context) (map[domain.Fase]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contagem := make(map[domain.Fase]int64)
	for _, imp := range r.data {
		contagem[imp.Fase]++
	}
	return contagem, nil
}

func (r *inMemoryImpugnacaoRepo) ListarPorImpugnacao(_ context.Context, id domain.ImpugnacaoID) ([]domain.EventoTimeline, error) {
	return r.eventosDe(id), nil
}

func (r *inMemoryImpugnacaoRepo) eventosDe(id domain.ImpugnacaoID) []domain.EventoTimeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	eventos := append([]domain.EventoTimeline(nil), r.eventos[id]...)
	sort.Slice(eventos, func(i, j int) bool { return eventos[i].Sequencia < eventos[j].Sequencia })
	return eventos
}

// sobrescrever permite montar estados intermediários que o motor não produz sozinho.
func (r *inMemoryImpugnacaoRepo) sobrescrever(id domain.ImpugnacaoID, fn func(*domain.Impugnacao)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp := r.data[id]
	fn(&imp)
	r.data[id] = imp
}

func copiar(imp domain.Impugnacao) domain.Impugnacao {
	imp.Anexos = append([]domain.Anexo(nil), imp.Anexos...)
	imp.Defesas = append([]domain.Defesa(nil), imp.Defesas...)
	imp.Pareceres = append([]domain.Parecer(nil), imp.Pareceres...)
	imp.Recursos = append([]domain.Recurso(nil), imp.Recursos...)
	return imp
}

var _ domain.ImpugnacaoRepository = (*inMemoryImpugnacaoRepo)(nil)
var _ domain.TimelineRepository = (*inMemoryImpugnacaoRepo)(nil)

// conflitoRepo injeta um escritor concorrente entre a carga e o salvamento.
type conflitoRepo struct {
	inner     *inMemoryImpugnacaoRepo
	aposCarga func()
}

func (r *conflitoRepo) Criar(ctx context.Context, imp domain.Impugnacao, evento domain.EventoTimeline) (domain.Impugnacao, error) {
	return r.inner.Criar(ctx, imp, evento)
}

func (r *conflitoRepo) BuscarPorID(ctx context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	imp, err := r.inner.BuscarPorID(ctx, id)
	if err == nil && r.aposCarga != nil {
		fn := r.aposCarga
		r.aposCarga = nil
		fn()
	}
	return imp, err
}

func (r *conflitoRepo) Salvar(ctx context.Context, imp domain.Impugnacao, versaoEsperada int64, eventos ...domain.EventoTimeline) (domain.Impugnacao, error) {
	return r.inner.Salvar(ctx, imp, versaoEsperada, eventos...)
}

func (r *conflitoRepo) Listar(ctx context.Context, filtro domain.FiltroImpugnacao) ([]domain.Impugnacao, error) {
	return r.inner.Listar(ctx, filtro)
}

func (r *conflitoRepo) ContarPorStatus(ctx context.Context) (map[domain.Status]int64, error) {
	return r.inner.ContarPorStatus(ctx)
}

func (r *conflitoRepo) ContarPorFase(ctx context.Context) (map[domain.Fase]int64, error) {
	return r.inner.ContarPorFase(ctx)
}

type seqProtocolos struct {
	seq atomic.Int64
}

func (s *seqProtocolos) Proximo(context.Context, int) (int64, error) {
	return s.seq.Add(1), nil
}

type recordingNotificador struct {
	mu       sync.Mutex
	enviadas []domain.NotificacaoEvento
}

func (n *recordingNotificador) Notificar(_ context.Context, evento domain.NotificacaoEvento) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enviadas = append(n.enviadas, evento)
	return nil
}

func (n *recordingNotificador) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.enviadas)
}

type staticClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *staticClock) Agora() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *staticClock) Avancar(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *staticClock) Definir(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
