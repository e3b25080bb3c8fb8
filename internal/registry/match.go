package registry

// match.go — emparejado de outcomes entre venues.
//
// Binarios: igualdad de label normalizado, con sinónimos Yes/No.
// Categóricos: cada candidato genera un set de claves derivadas de su texto
// (texto normalizado, números, rangos, umbrales direccionales, fechas) y la
// similitud es el solape ponderado de claves normalizado a [0,1]. Un match
// se acepta solo si supera el umbral y es el mejor único en ambas
// direcciones; cualquier ambigüedad deja el par entero sin resolver.

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// similarityThreshold es el mínimo de solape normalizado para aceptar un
// match categórico.
const similarityThreshold = 0.5

// MatchOutcomes alinea los outcomes de ambos descriptores y devuelve los
// mappings por outcome. Los errores envuelven los sentinels de domain para
// que el resolver clasifique el fallo.
func MatchOutcomes(typ domain.PairType, op, pm domain.MarketDescriptor) ([]domain.OutcomeMapping, error) {
	switch typ {
	case domain.PairBinary:
		return matchBinary(op, pm)
	case domain.PairCategorical:
		return matchCategorical(op, pm)
	default:
		return nil, fmt.Errorf("registry: pair type %q: %w", typ, domain.ErrBadPairConfig)
	}
}

// binarySynonyms canonicaliza los labels binarios entre venues.
var binarySynonyms = map[string]string{
	"yes": "yes", "y": "yes", "true": "yes",
	"no": "no", "n": "no", "false": "no",
}

func canonicalBinary(label string) string {
	n := normalizeLabel(label)
	if c, ok := binarySynonyms[n]; ok {
		return c
	}
	return n
}

func matchBinary(op, pm domain.MarketDescriptor) ([]domain.OutcomeMapping, error) {
	if len(op.Outcomes) != 2 || len(pm.Outcomes) != 2 {
		return nil, fmt.Errorf("registry: binary pair has %d/%d outcomes: %w",
			len(op.Outcomes), len(pm.Outcomes), domain.ErrOutcomeCountMismatch)
	}

	pmByLabel := make(map[string]domain.OutcomeToken, 2)
	for _, o := range pm.Outcomes {
		c := canonicalBinary(o.Label)
		if _, dup := pmByLabel[c]; dup {
			return nil, fmt.Errorf("registry: duplicate outcome label %q: %w", o.Label, domain.ErrNoUniqueMatch)
		}
		pmByLabel[c] = o
	}

	out := make([]domain.OutcomeMapping, 0, 2)
	for _, o := range op.Outcomes {
		c := canonicalBinary(o.Label)
		pmTok, ok := pmByLabel[c]
		if !ok {
			return nil, fmt.Errorf("registry: outcome %q has no counterpart: %w", o.Label, domain.ErrNoUniqueMatch)
		}
		delete(pmByLabel, c)

		if o.TokenID == "" || pmTok.TokenID == "" {
			return nil, fmt.Errorf("registry: outcome %q missing token id: %w", o.Label, domain.ErrUnresolved)
		}
		out = append(out, domain.OutcomeMapping{
			Label:             o.Label,
			OpinionTokenID:    o.TokenID,
			PolymarketTokenID: pmTok.TokenID,
		})
	}
	return out, nil
}

type candidate struct {
	token domain.OutcomeToken
	keys  map[string]struct{}
}

func matchCategorical(op, pm domain.MarketDescriptor) ([]domain.OutcomeMapping, error) {
	opCands := buildCandidates(op.Outcomes)
	pmCands := buildCandidates(pm.Outcomes)

	if len(opCands) != len(pmCands) {
		return nil, fmt.Errorf("registry: categorical pair has %d/%d outcomes: %w",
			len(opCands), len(pmCands), domain.ErrOutcomeCountMismatch)
	}
	if len(opCands) < 2 {
		return nil, fmt.Errorf("registry: categorical pair needs at least 2 outcomes, got %d: %w",
			len(opCands), domain.ErrOutcomeCountMismatch)
	}

	sims := make([][]float64, len(opCands))
	for i, oc := range opCands {
		sims[i] = make([]float64, len(pmCands))
		for j, pc := range pmCands {
			sims[i][j] = similarity(oc.keys, pc.keys)
		}
	}

	out := make([]domain.OutcomeMapping, 0, len(opCands))
	for i, oc := range opCands {
		j, err := bestUniqueMatch(sims, i)
		if err != nil {
			return nil, fmt.Errorf("registry: outcome %q: %w", oc.token.Label, err)
		}
		pc := pmCands[j]
		if oc.token.TokenID == "" || pc.token.TokenID == "" {
			return nil, fmt.Errorf("registry: outcome %q missing token id: %w", oc.token.Label, domain.ErrUnresolved)
		}
		out = append(out, domain.OutcomeMapping{
			Label:             oc.token.Label,
			OpinionTokenID:    oc.token.TokenID,
			PolymarketTokenID: pc.token.TokenID,
		})
	}
	return out, nil
}

func buildCandidates(outcomes []domain.OutcomeToken) []candidate {
	cands := make([]candidate, 0, len(outcomes))
	for _, o := range outcomes {
		cands = append(cands, candidate{token: o, keys: matchKeys(o.Label)})
	}
	return cands
}

// bestUniqueMatch devuelve la columna ganadora para la fila i: por encima
// del umbral, estrictamente mejor que la segunda opción de la fila, y
// estrictamente mejor que cualquier otra fila para esa columna.
func bestUniqueMatch(sims [][]float64, i int) (int, error) {
	best, second := -1, 0.0
	bestSim := 0.0
	for j, s := range sims[i] {
		switch {
		case s > bestSim:
			second = bestSim
			bestSim = s
			best = j
		case s > second:
			second = s
		}
	}

	if best < 0 || bestSim < similarityThreshold {
		return 0, fmt.Errorf("no match above threshold: %w", domain.ErrNoUniqueMatch)
	}
	if bestSim == second {
		return 0, fmt.Errorf("ambiguous match: %w", domain.ErrNoUniqueMatch)
	}
	for l := range sims {
		if l != i && sims[l][best] >= bestSim {
			return 0, fmt.Errorf("contested match: %w", domain.ErrNoUniqueMatch)
		}
	}
	return best, nil
}

// similarity es el peso de la intersección de claves dividido por el peso
// del set más liviano. Queda en [0,1]; 1 significa que un lado está
// contenido en el otro.
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter += keyWeight(k)
		}
	}
	if inter == 0 {
		return 0
	}
	min := scoreKeys(a)
	if sb := scoreKeys(b); sb < min {
		min = sb
	}
	if min == 0 {
		return 0
	}
	return float64(inter) / float64(min)
}

func scoreKeys(keys map[string]struct{}) int {
	total := 0
	for k := range keys {
		total += keyWeight(k)
	}
	return total
}

// --- generación de claves ---

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var (
	labelCleaner = strings.NewReplacer(
		"“", `"`, "”", `"`, "’", "'",
		"↑", " ", "↓", " ", "→", " ", "–", "-",
	)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9\s]+`)
	spaceRe        = regexp.MustCompile(`\s+`)
	yearRe         = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	rateWordsRe    = regexp.MustCompile(`\b(interest\s+)?rates?\b`)
	nonDigitRe     = regexp.MustCompile(`\D+`)
	compactNumRe   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*([kmb])\b`)
	rangeRe        = regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|to)\s*(\d+)`)
	symbolOpRe     = regexp.MustCompile(`(>=|<=|>|<)\s*\$?\s*(\d+(?:\.\d+)?)`)
	percentRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	thresholdNumRe = regexp.MustCompile(`\$?\s*(\d{2,}(?:\.\d+)?)\b`)
	geWordsRe      = regexp.MustCompile(`\b(up|reach(es)?|hits?|at least|above|over|greater than|more than)\b`)
	leWordsRe      = regexp.MustCompile(`\b(down|dips?|below|under|less than|at most)\b`)
	monthDayRe     = regexp.MustCompile(`\b(` + strings.Join(months, "|") + `)\s+(\d{1,2})\b`)
	incDecRe       = regexp.MustCompile(`^(increase|decrease)(\s+rates?)?$`)
)

// normalizeLabel baja a minúsculas, unifica comillas y flechas y colapsa
// todo lo que no sea alfanumérico a espacios.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = labelCleaner.Replace(s)
	s = strings.Trim(s, `"'`)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// matchKeys genera el set de claves comparables de un candidato. Cada
// variante añade robustez: sin años, sin "rates", solo dígitos, números
// compactos (150k), rangos (280-295), umbrales direccionales (ge_105000)
// y fechas mes-día.
func matchKeys(label string) map[string]struct{} {
	keys := make(map[string]struct{})
	raw := strings.TrimSpace(label)
	if raw == "" {
		return keys
	}

	add := func(k string) {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	base := normalizeLabel(raw)
	add(base)
	noComma := normalizeLabel(strings.ReplaceAll(raw, ",", ""))
	add(noComma)

	for _, k := range []string{base, noComma} {
		add(strings.TrimSpace(spaceRe.ReplaceAllString(yearRe.ReplaceAllString(k, " "), " ")))
	}
	for _, k := range sortedKeys(keys) {
		add(strings.TrimSpace(spaceRe.ReplaceAllString(rateWordsRe.ReplaceAllString(k, " "), " ")))
	}

	if m := monthDayRe.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		day, _ := strconv.Atoi(m[2])
		add(fmt.Sprintf("%s %d", m[1], day))
	}

	if digits := nonDigitRe.ReplaceAllString(raw, ""); len(digits) >= 3 {
		add(digits)
	}
	if n, ok := expandCompactNumber(raw); ok && n >= 100 {
		add(strconv.FormatInt(n, 10))
	}

	if m := rangeRe.FindStringSubmatch(strings.ReplaceAll(raw, ",", "")); m != nil {
		add(m[1] + "-" + m[2])
	}

	if op, n, ok := directionalThreshold(raw); ok {
		add(fmt.Sprintf("%s_%d", op, n))
		add(strconv.FormatInt(n, 10))
	}

	for _, k := range sortedKeys(keys) {
		if m := incDecRe.FindStringSubmatch(k); m != nil {
			add(m[1])
		}
		switch k {
		case "hold", "no change", "unchanged", "nochange":
			add("hold")
			add("no change")
		}
	}
	if _, ok := keys["another game"]; ok {
		add("other")
	}
	if _, ok := keys["other"]; ok {
		add("another game")
	}

	return keys
}

func sortedKeys(keys map[string]struct{}) []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// expandCompactNumber convierte 150k / 1.5m / 2b a su entero.
func expandCompactNumber(s string) (int64, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.NewReplacer("$", "", ",", "").Replace(t)
	m := compactNumRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	mul := map[string]float64{"k": 1e3, "m": 1e6, "b": 1e9}[m[2]]
	return int64(math.Round(num * mul)), true
}

// directionalThreshold extrae dirección (ge/le/gt/lt) y número de textos
// como "↑105k", "below 4000" o ">$500".
func directionalThreshold(raw string) (string, int64, bool) {
	t := strings.ReplaceAll(raw, ",", "")

	if m := symbolOpRe.FindStringSubmatch(t); m != nil {
		num, _ := strconv.ParseFloat(m[2], 64)
		n := int64(math.Round(num))
		switch m[1] {
		case ">=":
			return "ge", n, true
		case "<=":
			return "le", n, true
		case ">":
			return "gt", n, true
		case "<":
			return "lt", n, true
		}
	}

	n, ok := expandCompactNumber(t)
	if !ok {
		// Porcentajes primero: "4.50%" compara como 450, igual que los
		// candidatos escritos en puntos básicos.
		if m := percentRe.FindStringSubmatch(t); m != nil {
			num, _ := strconv.ParseFloat(m[1], 64)
			n = int64(math.Round(num * 100))
			ok = true
		}
	}
	if !ok {
		m := thresholdNumRe.FindStringSubmatch(t)
		if m == nil {
			return "", 0, false
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", 0, false
		}
		n = int64(math.Round(num))
	}

	tl := strings.ToLower(t)
	if strings.Contains(raw, "↑") || geWordsRe.MatchString(tl) {
		return "ge", n, true
	}
	if strings.Contains(raw, "↓") || leWordsRe.MatchString(tl) {
		return "le", n, true
	}
	return "", 0, false
}

// keyWeight pondera la especificidad de una clave: números y umbrales
// pesan mucho más que palabras sueltas.
func keyWeight(k string) int {
	k = strings.TrimSpace(k)
	switch {
	case k == "":
		return 0
	case thresholdKeyRe.MatchString(k):
		return 12
	case longDigitsRe.MatchString(k):
		return 10
	case digitRangeRe.MatchString(k):
		return 9
	case monthDayKeyRe.MatchString(k):
		return 7
	case k == "increase" || k == "decrease" || k == "hold" || k == "no change":
		return 3
	case k == "yes" || k == "no":
		return 2
	default:
		return 1
	}
}

var (
	thresholdKeyRe = regexp.MustCompile(`^(ge|gt|le|lt)_\d{2,}$`)
	longDigitsRe   = regexp.MustCompile(`^\d{3,}$`)
	digitRangeRe   = regexp.MustCompile(`^\d{2,}-\d{2,}$`)
	monthDayKeyRe  = regexp.MustCompile(`^(` + strings.Join(months, "|") + `)\s+\d{1,2}$`)
)
