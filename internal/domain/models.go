package domain

import (
	"time"
)

type (
	ImpugnacaoID string
	DefesaID     string
	ParecerID    string
	RecursoID    string
	AnexoID      string
	EventoID     string
)

// TipoImpugnacao classifica o alvo da impugnação; definido na criação e imutável.
type TipoImpugnacao string

const (
	TipoCandidatura TipoImpugnacao = "CANDIDATURA"
	TipoChapa       TipoImpugnacao = "CHAPA"
	TipoEleicao     TipoImpugnacao = "ELEICAO"
	TipoResultado   TipoImpugnacao = "RESULTADO"
	TipoVotacao     TipoImpugnacao = "VOTACAO"
)

func (t TipoImpugnacao) Valido() bool {
	switch t {
	case TipoCandidatura, TipoChapa, TipoEleicao, TipoResultado, TipoVotacao:
		return true
	}
	return false
}

// ExigeAlvo indica se o tipo requer chapa ou candidato vinculado.
func (t TipoImpugnacao) ExigeAlvo() bool {
	return t == TipoChapa || t == TipoCandidatura
}

// Fase representa a posição da impugnação na sequência processual fixa.
type Fase string

const (
	FaseRegistro       Fase = "REGISTRO"
	FaseAnaliseInicial Fase = "ANALISE_INICIAL"
	FaseDefesa         Fase = "DEFESA"
	FaseParecer        Fase = "PARECER"
	FaseJulgamento     Fase = "JULGAMENTO"
	FaseRecurso        Fase = "RECURSO"
	FaseEncerrada      Fase = "ENCERRADA"
)

func (f Fase) Valida() bool {
	switch f {
	case FaseRegistro, FaseAnaliseInicial, FaseDefesa, FaseParecer, FaseJulgamento, FaseRecurso, FaseEncerrada:
		return true
	}
	return false
}

// Status é o eixo de resultado, independente da fase.
type Status string

const (
	StatusPendente               Status = "PENDENTE"
	StatusEmAnalise              Status = "EM_ANALISE"
	StatusProcedente             Status = "PROCEDENTE"
	StatusImprocedente           Status = "IMPROCEDENTE"
	StatusParcialmenteProcedente Status = "PARCIALMENTE_PROCEDENTE"
	StatusEmRecurso              Status = "EM_RECURSO"
	StatusArquivada              Status = "ARQUIVADA"
)

func (s Status) Valido() bool {
	switch s {
	case StatusPendente, StatusEmAnalise, StatusProcedente, StatusImprocedente,
		StatusParcialmenteProcedente, StatusEmRecurso, StatusArquivada:
		return true
	}
	return false
}

// Terminal indica os resultados possíveis de um julgamento de mérito.
func (s Status) Terminal() bool {
	switch s {
	case StatusProcedente, StatusImprocedente, StatusParcialmenteProcedente:
		return true
	}
	return false
}

// DecisaoRecurso é o resultado do julgamento de um recurso.
type DecisaoRecurso string

const (
	RecursoProvido             DecisaoRecurso = "PROVIDO"
	RecursoNegado              DecisaoRecurso = "NEGADO"
	RecursoParcialmenteProvido DecisaoRecurso = "PARCIALMENTE_PROVIDO"
)

func (d DecisaoRecurso) Valida() bool {
	switch d {
	case RecursoProvido, RecursoNegado, RecursoParcialmenteProvido:
		return true
	}
	return false
}

// StatusRecurso acompanha o ciclo de vida próprio de cada recurso.
type StatusRecurso string

const (
	StatusRecursoPendente StatusRecurso = "PENDENTE"
	StatusRecursoJulgado  StatusRecurso = "JULGADO"
)

// TipoEvento identifica cada entrada da timeline de auditoria.
type TipoEvento string

const (
	EventoRegistro              TipoEvento = "REGISTRO"
	EventoAnaliseIniciada       TipoEvento = "ANALISE_INICIADA"
	EventoDefesaSolicitada      TipoEvento = "DEFESA_SOLICITADA"
	EventoDefesaApresentada     TipoEvento = "DEFESA_APRESENTADA"
	EventoParecerEmitido        TipoEvento = "PARECER_EMITIDO"
	EventoEncaminhadaJulgamento TipoEvento = "ENCAMINHADA_JULGAMENTO"
	EventoJulgada               TipoEvento = "JULGADA"
	EventoRecursoInterposto     TipoEvento = "RECURSO_INTERPOSTO"
	EventoRecursoJulgado        TipoEvento = "RECURSO_JULGADO"
	EventoArquivada             TipoEvento = "ARQUIVADA"
	EventoRelatorDesignado      TipoEvento = "RELATOR_DESIGNADO"
)

// Ator é o principal que executa a operação; papel e autorização chegam prontos da camada externa.
type Ator struct {
	ID    string
	Papel string
}

// Impugnacao é a raiz do agregado: toda mutação passa pelo motor de workflow e
// é serializada pelo controle otimista de versão.
type Impugnacao struct {
	ID             ImpugnacaoID   `gorm:"column:id;type:char(26);primaryKey"`
	Protocolo      string         `gorm:"column:protocolo;type:text;not null;uniqueIndex"`
	Tipo           TipoImpugnacao `gorm:"column:tipo;type:text;not null"`
	Fase           Fase           `gorm:"column:fase;type:text;not null;index"`
	Status         Status         `gorm:"column:status;type:text;not null;index"`
	RelatorID      string         `gorm:"column:relator_id;type:text"`
	Fundamentacao  string         `gorm:"column:fundamentacao;type:text;not null"`
	NormasVioladas string         `gorm:"column:normas_violadas;type:text"`
	Pedido         string         `gorm:"column:pedido;type:text;not null"`
	ChapaID        string         `gorm:"column:chapa_id;type:text"`
	CandidatoID    string         `gorm:"column:candidato_id;type:text"`
	ImpugnanteID   string         `gorm:"column:impugnante_id;type:text;not null"`

	PrazoDefesa *time.Time `gorm:"column:prazo_defesa"`

	Decisao              Status     `gorm:"column:decisao;type:text"`
	DecisaoFundamentacao string     `gorm:"column:decisao_fundamentacao;type:text"`
	DecisaoData          *time.Time `gorm:"column:decisao_data"`

	Versao       int64     `gorm:"column:versao;not null;default:1"`
	CriadoEm     time.Time `gorm:"column:criado_em;autoCreateTime"`
	AtualizadoEm time.Time `gorm:"column:atualizado_em;autoUpdateTime"`

	Anexos    []Anexo   `gorm:"polymorphic:Dono"`
	Defesas   []Defesa  `gorm:"foreignKey:ImpugnacaoID;constraint:OnDelete:CASCADE"`
	Pareceres []Parecer `gorm:"foreignKey:ImpugnacaoID;constraint:OnDelete:CASCADE"`
	Recursos  []Recurso `gorm:"foreignKey:ImpugnacaoID;constraint:OnDelete:CASCADE"`
}

// Arquivada informa se o registro foi congelado por arquivamento administrativo.
func (i Impugnacao) Arquivada() bool {
	return i.Status == StatusArquivada
}

func (i Impugnacao) Encerrada() bool {
	return i.Fase == FaseEncerrada
}

// UltimaDecisao devolve a data da decisão mais recente (mérito ou recurso),
// base do cálculo da janela recursal.
func (i Impugnacao) UltimaDecisao() *time.Time {
	ultima := i.DecisaoData
	for idx := range i.Recursos {
		d := i.Recursos[idx].DecisaoData
		if d != nil && (ultima == nil || d.After(*ultima)) {
			ultima = d
		}
	}
	return ultima
}

// Defesa é a manifestação do impugnado; imutável depois de criada, uma por defensor.
type Defesa struct {
	ID           DefesaID     `gorm:"column:id;type:char(26);primaryKey"`
	ImpugnacaoID ImpugnacaoID `gorm:"column:impugnacao_id;type:char(26);not null;index"`
	DefensorID   string       `gorm:"column:defensor_id;type:text;not null"`
	Conteudo     string       `gorm:"column:conteudo;type:text;not null"`
	CriadoEm     time.Time    `gorm:"column:criado_em;autoCreateTime"`

	Anexos []Anexo `gorm:"polymorphic:Dono"`
}

// Parecer é a recomendação não vinculante do relator; podem existir vários (revisão colegiada).
type Parecer struct {
	ID           ParecerID    `gorm:"column:id;type:char(26);primaryKey"`
	ImpugnacaoID ImpugnacaoID `gorm:"column:impugnacao_id;type:char(26);not null;index"`
	AutorID      string       `gorm:"column:autor_id;type:text;not null"`
	Conteudo     string       `gorm:"column:conteudo;type:text;not null"`
	Recomendacao Status       `gorm:"column:recomendacao;type:text;not null"`
	CriadoEm     time.Time    `gorm:"column:criado_em;autoCreateTime"`
}

// Recurso contesta uma decisão já proferida; cada instância tem decisão própria.
type Recurso struct {
	ID            RecursoID     `gorm:"column:id;type:char(26);primaryKey"`
	ImpugnacaoID  ImpugnacaoID  `gorm:"column:impugnacao_id;type:char(26);not null;index"`
	RecorrenteID  string        `gorm:"column:recorrente_id;type:text;not null"`
	Fundamentacao string        `gorm:"column:fundamentacao;type:text;not null"`
	Status        StatusRecurso `gorm:"column:status;type:text;not null"`

	Decisao              DecisaoRecurso `gorm:"column:decisao;type:text"`
	DecisaoFundamentacao string         `gorm:"column:decisao_fundamentacao;type:text"`
	DecisaoData          *time.Time     `gorm:"column:decisao_data"`

	CriadoEm time.Time `gorm:"column:criado_em;autoCreateTime"`

	Anexos []Anexo `gorm:"polymorphic:Dono"`
}

// Anexo guarda apenas metadados e a referência opaca do storage externo.
type Anexo struct {
	ID       AnexoID   `gorm:"column:id;type:char(26);primaryKey"`
	DonoID   string    `gorm:"column:dono_id;type:char(26);not null;index"`
	DonoType string    `gorm:"column:dono_type;type:text;not null"`
	Nome     string    `gorm:"column:nome;type:text;not null"`
	Ref      string    `gorm:"column:ref;type:text;not null"`
	CriadoEm time.Time `gorm:"column:criado_em;autoCreateTime"`
}

// EventoTimeline é a trilha de auditoria: somente inserção, ordenada pela
// sequência atribuída na transação de commit, nunca por timestamp do chamador.
type EventoTimeline struct {
	ID           EventoID     `gorm:"column:id;type:char(26);primaryKey"`
	ImpugnacaoID ImpugnacaoID `gorm:"column:impugnacao_id;type:char(26);not null;uniqueIndex:idx_timeline_seq,priority:1"`
	Sequencia    int64        `gorm:"column:sequencia;not null;uniqueIndex:idx_timeline_seq,priority:2"`
	Evento       TipoEvento   `gorm:"column:evento;type:text;not null"`
	Descricao    string       `gorm:"column:descricao;type:text"`
	AutorID      string       `gorm:"column:autor_id;type:text"`
	CriadoEm     time.Time    `gorm:"column:criado_em;autoCreateTime"`
}

// NotificacaoEvento é a mensagem publicada na fila para o gateway de notificações.
type NotificacaoEvento struct {
	ImpugnacaoID ImpugnacaoID `json:"impugnacao_id"`
	Protocolo    string       `json:"protocolo"`
	Evento       TipoEvento   `json:"evento"`
	Fase         Fase         `json:"fase"`
	Status       Status       `json:"status"`
	OcorridoEm   time.Time    `json:"ocorrido_em"`
}

// Estatistica agrega contagens para o serviço de relatórios (somente leitura).
type Estatistica struct {
	Chave      string  `json:"chave"`
	Total      int64   `json:"total"`
	Percentual float64 `json:"percentual"`
}

func (Impugnacao) TableName() string { return "impugnacoes" }

func (Defesa) TableName() string { return "defesas" }

func (Parecer) TableName() string { return "pareceres" }

func (Recurso) TableName() string { return "recursos" }

func (Anexo) TableName() string { return "anexos" }

func (EventoTimeline) TableName() string { return "eventos_timeline" }
