package domain

import "errors"

var (
	// ErrNotFound indica que o agregado não existe no repositório.
	ErrNotFound = errors.New("registro nao encontrado")

	// ErrConflito sinaliza colisão de concorrência otimista: a versão esperada
	// já foi sobrescrita por outro chamador. É o único erro que o chamador deve
	// tratar recarregando e reavaliando a operação.
	ErrConflito = errors.New("conflito de versao")
)
