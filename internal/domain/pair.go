package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// PairType clasifica la estructura de un par de mercados.
type PairType string

const (
	// PairBinary es un mercado Yes/No en ambos venues.
	PairBinary PairType = "binary"
	// PairCategorical es un mercado multi-candidato (N outcomes excluyentes).
	PairCategorical PairType = "categorical"
)

// MarketPair es el mismo evento real listado en los dos venues.
// Se carga desde el archivo de pares y es inmutable durante la ejecución.
type MarketPair struct {
	Name          string   `json:"name"`
	Type          PairType `json:"type"`
	OpinionURL    string   `json:"opinion_url"`
	PolymarketURL string   `json:"polymarket_url"`
}

// Validate comprueba que la definición del par está completa y es de un tipo soportado.
// Un par inválido se descarta individualmente; no afecta al resto.
func (p MarketPair) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("pair %q: %w: empty name", p.Name, ErrBadPairConfig)
	}
	if p.Type != PairBinary && p.Type != PairCategorical {
		return fmt.Errorf("pair %q: %w: type %q", p.Name, ErrBadPairConfig, p.Type)
	}
	if strings.TrimSpace(p.OpinionURL) == "" || strings.TrimSpace(p.PolymarketURL) == "" {
		return fmt.Errorf("pair %q: %w: both venue URLs required", p.Name, ErrBadPairConfig)
	}
	return nil
}

// Fingerprint devuelve el identificador estable del par derivado de sus dos URLs.
// Es la clave de persistencia del mapping: pares distintos nunca colisionan.
func (p MarketPair) Fingerprint() string {
	return Fingerprint(p.OpinionURL, p.PolymarketURL)
}

// Fingerprint calcula el hash estable de un par de URLs (16 hex chars).
func Fingerprint(opinionURL, polymarketURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(opinionURL) + "|" + strings.TrimSpace(polymarketURL)))
	return hex.EncodeToString(sum[:8])
}
