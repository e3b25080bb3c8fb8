package fetch

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// LimiterForQPS crea un token bucket con qps sostenidos y burst igual al
// techo de qps (mínimo 1). Con qps <= 0 no se limita.
func LimiterForQPS(qps float64) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(math.Ceil(qps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}

// LimiterForInterval crea un limiter que espacia las llamadas al menos
// cada intervalo dado. Con d <= 0 no se limita.
func LimiterForInterval(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}
