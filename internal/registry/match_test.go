package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// desc construye un MarketDescriptor a partir de pares label/token.
func desc(v domain.Venue, labelToken ...string) domain.MarketDescriptor {
	d := domain.MarketDescriptor{Venue: v}
	for i := 0; i+1 < len(labelToken); i += 2 {
		d.Outcomes = append(d.Outcomes, domain.OutcomeToken{
			Label:   labelToken[i],
			TokenID: labelToken[i+1],
		})
	}
	return d
}

// --- binarios ---

func TestMatchOutcomes_BinaryAlignsByLabel(t *testing.T) {
	op := desc(domain.VenueOpinion, "Yes", "op-y", "No", "op-n")
	pm := desc(domain.VenuePolymarket, "No", "pm-n", "Yes", "pm-y")

	out, err := MatchOutcomes(domain.PairBinary, op, pm)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Yes", out[0].Label)
	assert.Equal(t, "op-y", out[0].OpinionTokenID)
	assert.Equal(t, "pm-y", out[0].PolymarketTokenID)
	assert.Equal(t, "No", out[1].Label)
	assert.Equal(t, "pm-n", out[1].PolymarketTokenID)
}

func TestMatchOutcomes_BinarySynonyms(t *testing.T) {
	op := desc(domain.VenueOpinion, "Yes", "op-y", "No", "op-n")
	pm := desc(domain.VenuePolymarket, "TRUE", "pm-t", "FALSE", "pm-f")

	out, err := MatchOutcomes(domain.PairBinary, op, pm)
	require.NoError(t, err)
	assert.Equal(t, "pm-t", out[0].PolymarketTokenID)
	assert.Equal(t, "pm-f", out[1].PolymarketTokenID)
}

func TestMatchOutcomes_BinaryLabelMismatch(t *testing.T) {
	op := desc(domain.VenueOpinion, "Yes", "op-y", "No", "op-n")
	pm := desc(domain.VenuePolymarket, "Up", "pm-u", "Down", "pm-d")

	_, err := MatchOutcomes(domain.PairBinary, op, pm)
	assert.ErrorIs(t, err, domain.ErrNoUniqueMatch)
}

func TestMatchOutcomes_BinaryCountMismatch(t *testing.T) {
	op := desc(domain.VenueOpinion, "Yes", "op-y", "No", "op-n")
	pm := desc(domain.VenuePolymarket, "Yes", "pm-y", "No", "pm-n", "Maybe", "pm-m")

	_, err := MatchOutcomes(domain.PairBinary, op, pm)
	assert.ErrorIs(t, err, domain.ErrOutcomeCountMismatch)
}

func TestMatchOutcomes_BinaryMissingToken(t *testing.T) {
	op := desc(domain.VenueOpinion, "Yes", "op-y", "No", "op-n")
	pm := desc(domain.VenuePolymarket, "Yes", "", "No", "pm-n")

	_, err := MatchOutcomes(domain.PairBinary, op, pm)
	assert.ErrorIs(t, err, domain.ErrUnresolved)
}

// --- categóricos ---

func TestMatchOutcomes_CategoricalExactLabels(t *testing.T) {
	op := desc(domain.VenueOpinion,
		"Real Madrid", "op-rm",
		"Arsenal", "op-ar",
		"Another Team", "op-ot",
	)
	pm := desc(domain.VenuePolymarket,
		"Arsenal", "pm-ar",
		"Another Team", "pm-ot",
		"Real Madrid", "pm-rm",
	)

	out, err := MatchOutcomes(domain.PairCategorical, op, pm)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Real Madrid", out[0].Label)
	assert.Equal(t, "pm-rm", out[0].PolymarketTokenID)
	assert.Equal(t, "pm-ar", out[1].PolymarketTokenID)
	assert.Equal(t, "pm-ot", out[2].PolymarketTokenID)
}

func TestMatchOutcomes_CategoricalThresholdVariants(t *testing.T) {
	// Cada venue escribe los umbrales a su manera; las claves derivadas
	// (ge_150000, le_95000) los tienen que unir igualmente.
	op := desc(domain.VenueOpinion,
		"Reaches $150k", "op-up",
		"Dips to $95,000", "op-down",
		"No change", "op-flat",
	)
	pm := desc(domain.VenuePolymarket,
		"↓95000", "pm-down",
		"No Change", "pm-flat",
		"↑150000", "pm-up",
	)

	out, err := MatchOutcomes(domain.PairCategorical, op, pm)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "pm-up", out[0].PolymarketTokenID)
	assert.Equal(t, "pm-down", out[1].PolymarketTokenID)
	assert.Equal(t, "pm-flat", out[2].PolymarketTokenID)
}

func TestMatchOutcomes_CategoricalAmbiguous(t *testing.T) {
	op := desc(domain.VenueOpinion, "Team Alpha", "op-a", "Team Beta", "op-b")
	pm := desc(domain.VenuePolymarket, "Team Alpha", "pm-1", "Team Alpha", "pm-2")

	_, err := MatchOutcomes(domain.PairCategorical, op, pm)
	assert.ErrorIs(t, err, domain.ErrNoUniqueMatch)
}

func TestMatchOutcomes_CategoricalCountMismatch(t *testing.T) {
	op := desc(domain.VenueOpinion, "Alice", "op-a", "Bob", "op-b", "Carol", "op-c")
	pm := desc(domain.VenuePolymarket, "Alice", "pm-a", "Bob", "pm-b")

	_, err := MatchOutcomes(domain.PairCategorical, op, pm)
	assert.ErrorIs(t, err, domain.ErrOutcomeCountMismatch)
}

func TestMatchOutcomes_CategoricalNoOverlap(t *testing.T) {
	op := desc(domain.VenueOpinion, "Lakers", "op-l", "Celtics", "op-c")
	pm := desc(domain.VenuePolymarket, "Warriors", "pm-w", "Knicks", "pm-k")

	_, err := MatchOutcomes(domain.PairCategorical, op, pm)
	assert.ErrorIs(t, err, domain.ErrNoUniqueMatch)
}

// --- claves y similitud ---

func TestMatchKeys_Variants(t *testing.T) {
	keys := matchKeys("Fed raises rates in March 2026")
	assert.Contains(t, keys, "fed raises rates in march 2026")
	assert.Contains(t, keys, "fed raises rates in march")
	assert.Contains(t, keys, "fed raises in march")

	keys = matchKeys("↑ $105,000")
	assert.Contains(t, keys, "ge_105000")
	assert.Contains(t, keys, "105000")

	keys = matchKeys("Below 4.50%")
	assert.Contains(t, keys, "le_450")

	keys = matchKeys("January 15")
	assert.Contains(t, keys, "january 15")

	keys = matchKeys("280-295 bps")
	assert.Contains(t, keys, "280-295")

	keys = matchKeys("1.5m barrels")
	assert.Contains(t, keys, "1500000")
}

func TestSimilarity_Normalized(t *testing.T) {
	a := matchKeys("Real Madrid")
	b := matchKeys("Real Madrid")
	assert.InDelta(t, 1.0, similarity(a, b), 1e-9)

	c := matchKeys("Arsenal")
	assert.Zero(t, similarity(a, c))

	assert.Zero(t, similarity(a, matchKeys("")))
}

func TestKeyWeight_PrefersSpecificKeys(t *testing.T) {
	assert.Equal(t, 12, keyWeight("ge_105000"))
	assert.Equal(t, 10, keyWeight("105000"))
	assert.Equal(t, 9, keyWeight("280-295"))
	assert.Equal(t, 7, keyWeight("january 15"))
	assert.Equal(t, 3, keyWeight("hold"))
	assert.Equal(t, 1, keyWeight("real madrid"))
}
