package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rafaelcm/impugnacoes/internal/domain"
)

// ImpugnacaoRepository persiste o agregado completo com concorrência otimista.
// Agregado e eventos de timeline são gravados na mesma transação: sem evento
// durável não há operação concluída.
type ImpugnacaoRepository struct {
	db *gorm.DB
}

func NewImpugnacaoRepository(db *gorm.DB) *ImpugnacaoRepository {
	return &ImpugnacaoRepository{db: db}
}

func (r *ImpugnacaoRepository) Criar(ctx context.Context, imp domain.Impugnacao, evento domain.EventoTimeline) (domain.Impugnacao, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&imp).Error; err != nil {
			return fmt.Errorf("gorm impugnacao: inserir: %w", err)
		}
		evento.ImpugnacaoID = imp.ID
		evento.Sequencia = 1
		if err := tx.Create(&evento).Error; err != nil {
			return fmt.Errorf("gorm impugnacao: inserir evento inicial: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Impugnacao{}, err
	}
	return r.BuscarPorID(ctx, imp.ID)
}

func (r *ImpugnacaoRepository) BuscarPorID(ctx context.Context, id domain.ImpugnacaoID) (domain.Impugnacao, error) {
	var imp domain.Impugnacao
	if err := r.db.WithContext(ctx).
		Preload("Anexos").
		Preload("Defesas").
		Preload("Defesas.Anexos").
		Preload("Pareceres").
		Preload("Recursos").
		Preload("Recursos.Anexos").
		First(&imp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Impugnacao{}, domain.ErrNotFound
		}
		return domain.Impugnacao{}, fmt.Errorf("gorm impugnacao: buscar id: %w", err)
	}
	return imp, nil
}

// Salvar grava condicionado à versão esperada. O primeiro a confirmar vence;
// o perdedor recebe ErrConflito e nada é persistido, nem eventos.
func (r *ImpugnacaoRepository) Salvar(ctx context.Context, imp domain.Impugnacao, versaoEsperada int64, eventos ...domain.EventoTimeline) (domain.Impugnacao, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Impugnacao{}).
			Where("id = ? AND versao = ?", imp.ID, versaoEsperada).
			Updates(map[string]any{
				"fase":                  imp.Fase,
				"status":                imp.Status,
				"relator_id":            imp.RelatorID,
				"prazo_defesa":          imp.PrazoDefesa,
				"decisao":               imp.Decisao,
				"decisao_fundamentacao": imp.DecisaoFundamentacao,
				"decisao_data":          imp.DecisaoData,
				"atualizado_em":         imp.AtualizadoEm,
				"versao":                versaoEsperada + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("gorm impugnacao: atualizar: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var existentes int64
			if err := tx.Model(&domain.Impugnacao{}).Where("id = ?", imp.ID).Count(&existentes).Error; err != nil {
				return fmt.Errorf("gorm impugnacao: verificar existencia: %w", err)
			}
			if existentes == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflito
		}

		// Sub-entidades são imutáveis depois de criadas; o upsert ignora as já
		// existentes e insere apenas as novas. Recursos são a exceção: o
		// julgamento preenche os campos de decisão da linha existente.
		for i := range imp.Defesas {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&imp.Defesas[i]).Error; err != nil {
				return fmt.Errorf("gorm impugnacao: inserir defesa: %w", err)
			}
		}
		for i := range imp.Pareceres {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&imp.Pareceres[i]).Error; err != nil {
				return fmt.Errorf("gorm impugnacao: inserir parecer: %w", err)
			}
		}
		for i := range imp.Recursos {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&imp.Recursos[i]).Error; err != nil {
				return fmt.Errorf("gorm impugnacao: gravar recurso: %w", err)
			}
		}

		// A sequência dos eventos segue a ordem de commit; a trava de versão
		// acima garante escritor único por agregado dentro desta transação.
		var ultimaSeq int64
		if err := tx.Model(&domain.EventoTimeline{}).
			Where("impugnacao_id = ?", imp.ID).
			Select("COALESCE(MAX(sequencia), 0)").
			Scan(&ultimaSeq).Error; err != nil {
			return fmt.Errorf("gorm impugnacao: sequencia da timeline: %w", err)
		}
		for _, evento := range eventos {
			ultimaSeq++
			evento.ImpugnacaoID = imp.ID
			evento.Sequencia = ultimaSeq
			if err := tx.Create(&evento).Error; err != nil {
				return fmt.Errorf("gorm impugnacao: inserir evento: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Impugnacao{}, err
	}

	// A resposta é sempre o estado persistido, nunca o previsto pelo chamador.
	return r.BuscarPorID(ctx, imp.ID)
}

func (r *ImpugnacaoRepository) Listar(ctx context.Context, filtro domain.FiltroImpugnacao) ([]domain.Impugnacao, error) {
	consulta := r.db.WithContext(ctx).Model(&domain.Impugnacao{})
	if filtro.Fase != "" {
		consulta = consulta.Where("fase = ?", filtro.Fase)
	}
	if filtro.Status != "" {
		consulta = consulta.Where("status = ?", filtro.Status)
	}
	if filtro.Tipo != "" {
		consulta = consulta.Where("tipo = ?", filtro.Tipo)
	}

	var resultado []domain.Impugnacao
	if err := consulta.Order("criado_em DESC").Find(&resultado).Error; err != nil {
		return nil, fmt.Errorf("gorm impugnacao: listar: %w", err)
	}
	return resultado, nil
}

func (r *ImpugnacaoRepository) ContarPorStatus(ctx context.Context) (map[domain.Status]int64, error) {
	type linha struct {
		Status string
		Total  int64
	}
	var linhas []linha
	if err := r.db.WithContext(ctx).Model(&domain.Impugnacao{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&linhas).Error; err != nil {
		return nil, fmt.Errorf("gorm impugnacao: contar por status: %w", err)
	}

	contagem := make(map[domain.Status]int64, len(linhas))
	for _, l := range linhas {
		contagem[domain.Status(l.Status)] = l.Total
	}
	return contagem, nil
}

func (r *ImpugnacaoRepository) ContarPorFase(ctx context.Context) (map[domain.Fase]int64, error) {
	type linha struct {
		Fase  string
		Total int64
	}
	var linhas []linha
	if err := r.db.WithContext(ctx).Model(&domain.Impugnacao{}).
		Select("fase, COUNT(*) AS total").
		Group("fase").
		Scan(&linhas).Error; err != nil {
		return nil, fmt.Errorf("gorm impugnacao: contar por fase: %w", err)
	}

	contagem := make(map[domain.Fase]int64, len(linhas))
	for _, l := range linhas {
		contagem[domain.Fase(l.Fase)] = l.Total
	}
	return contagem, nil
}

var _ domain.ImpugnacaoRepository = (*ImpugnacaoRepository)(nil)
