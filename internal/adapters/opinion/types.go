package opinion

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DTOs raw del openapi de Opinion. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// envelope es el sobre común de todas las respuestas del openapi.
// Según el endpoint el código de error llega como "code" o como "errno",
// y el payload útil puede venir en result.data o directamente en result.
type envelope struct {
	Code   *int            `json:"code"`
	Errno  *int            `json:"errno"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// errCode devuelve el código de error del sobre, 0 si no hay.
func (e envelope) errCode() int {
	if e.Code != nil {
		return *e.Code
	}
	if e.Errno != nil {
		return *e.Errno
	}
	return 0
}

// payload desenvuelve result.data cuando existe, si no devuelve result.
func (e envelope) payload() json.RawMessage {
	if len(e.Result) == 0 {
		return nil
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(e.Result, &wrapper); err == nil &&
		len(wrapper.Data) > 0 && !bytes.Equal(wrapper.Data, []byte("null")) {
		return wrapper.Data
	}
	return e.Result
}

// marketRaw es un mercado del openapi. Para categóricos el mercado padre
// trae sus candidatos en childMarkets.
type marketRaw struct {
	MarketID     json.Number `json:"marketId"`
	MarketTitle  string      `json:"marketTitle"`
	YesTokenID   string      `json:"yesTokenId"`
	NoTokenID    string      `json:"noTokenId"`
	ChildMarkets []marketRaw `json:"childMarkets"`
}

// bookRaw es un orderbook del endpoint /token/orderbook.
type bookRaw struct {
	Bids []levelRaw `json:"bids"`
	Asks []levelRaw `json:"asks"`
}

// levelRaw es un nivel de precio. El API a veces manda números y a veces
// strings, flexNumber acepta ambos.
type levelRaw struct {
	Price flexNumber `json:"price"`
	Size  flexNumber `json:"size"`
}

// flexNumber decodifica un número JSON venga como número o como string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}
