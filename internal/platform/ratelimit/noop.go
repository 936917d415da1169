package ratelimit

import (
	"context"

	"github.com/rafaelcm/impugnacoes/internal/domain"
)

// Noop representa o controle antiabuso desabilitado.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Validar(ctx context.Context, ator domain.Ator, origemIP string) error {
	// Implementação vazia usada quando o rate limit é desligado via config.
	return nil
}
