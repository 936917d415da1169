package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rafaelcm/impugnacoes/internal/domain"
)

// Protocolos gera o sequencial anual via INCR: atômico no Redis, portanto único
// mesmo com registros concorrentes em instâncias distintas da API.
type Protocolos struct {
	client *redis.Client
	prefix string
}

func NewProtocolos(client *redis.Client, prefix string) *Protocolos {
	if prefix == "" {
		prefix = "protocolo"
	}
	return &Protocolos{
		client: client,
		prefix: prefix,
	}
}

func (p *Protocolos) Proximo(ctx context.Context, ano int) (int64, error) {
	seq, err := p.client.Incr(ctx, p.key(ano)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis protocolo: falha ao incrementar sequencial de %d: %w", ano, err)
	}
	return seq, nil
}

func (p *Protocolos) key(ano int) string {
	return fmt.Sprintf("%s:%d", p.prefix, ano)
}

var _ domain.GeradorProtocolo = (*Protocolos)(nil)
