package fetch

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted marca que todos los reintentos fallaron con errores
// transitorios (timeout, 429, 5xx). El caller puede decidir conservar
// datos cacheados en lugar de descartar el resultado.
var ErrRetriesExhausted = errors.New("retries exhausted")

// StatusError es un error permanente del API (4xx distinto de 429).
// No se reintenta.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("client error %d", e.Status)
	}
	return fmt.Sprintf("client error %d: %s", e.Status, e.Body)
}

// IsNotFound indica si err es un 404 del API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}

// IsPermanent indica si err no merece reintento: errores 4xx del API o
// payloads que no se pudieron decodificar.
func IsPermanent(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, errMalformed)
}

// errMalformed marca respuestas 2xx cuyo body no decodifica al shape esperado.
var errMalformed = errors.New("malformed response")
