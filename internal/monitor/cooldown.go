package monitor

import (
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Tracker suprime alertas repetidas de la misma oportunidad (par más
// assignment) dentro de la ventana de cooldown. Solo lo toca la fase
// secuencial de evaluación, así que no lleva lock.
type Tracker struct {
	ttl  time.Duration
	last map[string]time.Time
}

// NewTracker crea un tracker con la ventana dada. Con ttl <= 0 no se
// suprime nada.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{ttl: ttl, last: make(map[string]time.Time)}
}

// Admit devuelve true si la oportunidad puede alertar y registra el
// momento. Una oportunidad suprimida no renueva la ventana: el cooldown
// cuenta desde la última alerta emitida. El mismo par con otro assignment
// es una oportunidad distinta.
func (t *Tracker) Admit(o domain.Opportunity, now time.Time) bool {
	if t.ttl <= 0 {
		return true
	}
	key := o.CooldownKey()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.ttl {
		return false
	}
	t.last[key] = now
	return true
}

// Sweep olvida claves cuya ventana ya venció, para que el mapa no crezca
// sin límite en ejecuciones largas.
func (t *Tracker) Sweep(now time.Time) {
	for k, last := range t.last {
		if now.Sub(last) >= t.ttl {
			delete(t.last, k)
		}
	}
}
