package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rafaelcm/impugnacoes/internal/domain"
)

// TimelineRepository lê a trilha de auditoria; a escrita acontece apenas dentro
// das transações do ImpugnacaoRepository.
type TimelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

func (r *TimelineRepository) ListarPorImpugnacao(ctx context.Context, id domain.ImpugnacaoID) ([]domain.EventoTimeline, error) {
	var eventos []domain.EventoTimeline
	if err := r.db.WithContext(ctx).
		Where("impugnacao_id = ?", id).
		Order("sequencia ASC").
		Find(&eventos).Error; err != nil {
		return nil, fmt.Errorf("gorm timeline: listar: %w", err)
	}
	return eventos, nil
}

var _ domain.TimelineRepository = (*TimelineRepository)(nil)
