// Pacote clock fornece a fonte de tempo dos prazos de defesa e janelas
// recursais; comparações nunca usam "agora" vindo do cliente.
package clock

import "time"

type SystemClock struct{}

func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Agora() time.Time {
	return time.Now().UTC()
}
