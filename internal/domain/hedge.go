package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EvalConfig bounds what counts as an alertable hedge.
type EvalConfig struct {
	// DeltaCents is the minimum edge below 1.00 required, in cents.
	DeltaCents float64
	// MinDeployUSD is the minimum worst-of-legs tradable notional.
	MinDeployUSD float64
	// MaxDaysToExpiry rejects markets that resolve too far in the future.
	MaxDaysToExpiry float64
}

// HedgeLeg is a single buy of one outcome on one venue.
type HedgeLeg struct {
	Outcome  string
	Venue    Venue
	TokenID  string
	AskPrice float64
	AskSize  float64
}

// Notional returns the tradable USD at the quoted ask for this leg.
func (l HedgeLeg) Notional() float64 {
	return l.AskPrice * l.AskSize
}

// Hedge is the cheapest fully covering hedge found for one pair in one cycle.
// Buying every leg pays out exactly 1 unit whichever outcome resolves true.
type Hedge struct {
	PairName      string
	Assignment    string
	SumCost       float64
	EdgeCents     float64
	DeployableUSD float64
	DaysToExpiry  float64
	Legs          []HedgeLeg
}

// Qualifies reports whether the hedge clears every alert threshold:
// cost below 1 minus the delta, enough depth on the thinnest leg, and a
// resolution date within bounds. An unknown expiry (negative) is not
// grounds for rejection since it cannot be compared.
func (h Hedge) Qualifies(cfg EvalConfig) bool {
	if h.SumCost >= 1-cfg.DeltaCents/100 {
		return false
	}
	if h.DeployableUSD < cfg.MinDeployUSD {
		return false
	}
	if cfg.MaxDaysToExpiry > 0 && h.DaysToExpiry > cfg.MaxDaysToExpiry {
		return false
	}
	return true
}

// BestHedge computes the cheapest fully covering hedge for a resolved pair
// from this cycle's snapshots.
//
// Binary pairs have exactly two assignments, outcome 0 on one venue plus
// outcome 1 on the other, and the cheaper feasible one wins. Categorical
// pairs buy each outcome on whichever venue quotes the lower ask.
//
// Any mapped token without a snapshot, or with a snapshot older than maxAge,
// skips the whole pair (wrapped ErrMissingSnapshot / ErrStaleSnapshot): a
// partial view could misprice the hedge. A snapshot with an empty ask side
// only removes the assignments that would buy it; if no feasible assignment
// remains the pair is skipped with ErrNoAsk.
func BestHedge(m TokenMapping, books *BookSet, maxAge time.Duration, now time.Time) (Hedge, error) {
	if !m.Resolved() {
		return Hedge{}, fmt.Errorf("pair %q: %w", m.PairName, ErrUnresolved)
	}

	snaps, err := collectSnapshots(m, books, maxAge, now)
	if err != nil {
		return Hedge{}, err
	}

	var legs []HedgeLeg
	switch m.Type {
	case PairBinary:
		legs, err = binaryLegs(m, snaps)
	case PairCategorical:
		legs, err = categoricalLegs(m, snaps)
	default:
		return Hedge{}, fmt.Errorf("pair %q: %w", m.PairName, ErrUnresolved)
	}
	if err != nil {
		return Hedge{}, err
	}

	h := Hedge{
		PairName:     m.PairName,
		Legs:         legs,
		DaysToExpiry: m.DaysToExpiry(now),
	}
	deployable := math.Inf(1)
	parts := make([]string, len(legs))
	for i, l := range legs {
		h.SumCost += l.AskPrice
		deployable = math.Min(deployable, l.Notional())
		parts[i] = l.Venue.Code() + ":" + l.Outcome
	}
	h.Assignment = strings.Join(parts, "+")
	h.DeployableUSD = deployable
	h.EdgeCents = (1 - h.SumCost) * 100
	return h, nil
}

// Code returns the short venue tag used in assignments and logs.
func (v Venue) Code() string {
	switch v {
	case VenueOpinion:
		return "op"
	case VenuePolymarket:
		return "pm"
	}
	return string(v)
}

// legSnapshots holds both venue snapshots for one outcome.
type legSnapshots struct {
	opinion    Snapshot
	polymarket Snapshot
}

// collectSnapshots gathers a fresh snapshot per outcome per venue, or fails
// the pair if any is missing or stale.
func collectSnapshots(m TokenMapping, books *BookSet, maxAge time.Duration, now time.Time) ([]legSnapshots, error) {
	out := make([]legSnapshots, len(m.Outcomes))
	for i, o := range m.Outcomes {
		for _, side := range []struct {
			venue Venue
			token string
		}{
			{VenueOpinion, o.OpinionTokenID},
			{VenuePolymarket, o.PolymarketTokenID},
		} {
			s, ok := books.Lookup(side.venue, side.token)
			if !ok {
				return nil, fmt.Errorf("pair %q outcome %q on %s: %w",
					m.PairName, o.Label, side.venue, ErrMissingSnapshot)
			}
			if maxAge > 0 && s.OlderThan(maxAge, now) {
				return nil, fmt.Errorf("pair %q outcome %q on %s: %w",
					m.PairName, o.Label, side.venue, ErrStaleSnapshot)
			}
			if side.venue == VenueOpinion {
				out[i].opinion = s
			} else {
				out[i].polymarket = s
			}
		}
	}
	return out, nil
}

// binaryLegs evaluates the two binary assignments and keeps the cheaper one.
func binaryLegs(m TokenMapping, snaps []legSnapshots) ([]HedgeLeg, error) {
	a := assignmentLegs(m, snaps, VenueOpinion, VenuePolymarket)
	b := assignmentLegs(m, snaps, VenuePolymarket, VenueOpinion)

	switch {
	case a == nil && b == nil:
		return nil, fmt.Errorf("pair %q: %w", m.PairName, ErrNoAsk)
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	}
	if sumAsks(a) <= sumAsks(b) {
		return a, nil
	}
	return b, nil
}

// assignmentLegs builds the leg pair (outcome 0 on first, outcome 1 on second),
// or nil when either book has no ask to buy.
func assignmentLegs(m TokenMapping, snaps []legSnapshots, first, second Venue) []HedgeLeg {
	l0, ok0 := makeLeg(m.Outcomes[0], snaps[0], first)
	l1, ok1 := makeLeg(m.Outcomes[1], snaps[1], second)
	if !ok0 || !ok1 {
		return nil
	}
	return []HedgeLeg{l0, l1}
}

// categoricalLegs picks, for every outcome, the venue with the lower ask.
func categoricalLegs(m TokenMapping, snaps []legSnapshots) ([]HedgeLeg, error) {
	legs := make([]HedgeLeg, 0, len(m.Outcomes))
	for i, o := range m.Outcomes {
		op, okOp := makeLeg(o, snaps[i], VenueOpinion)
		pm, okPm := makeLeg(o, snaps[i], VenuePolymarket)

		switch {
		case !okOp && !okPm:
			return nil, fmt.Errorf("pair %q outcome %q: %w", m.PairName, o.Label, ErrNoAsk)
		case !okPm:
			legs = append(legs, op)
		case !okOp:
			legs = append(legs, pm)
		case op.AskPrice <= pm.AskPrice:
			legs = append(legs, op)
		default:
			legs = append(legs, pm)
		}
	}
	return legs, nil
}

// makeLeg builds the leg buying one outcome on one venue, if it has an ask.
func makeLeg(o OutcomeMapping, snaps legSnapshots, v Venue) (HedgeLeg, bool) {
	s := snaps.opinion
	token := o.OpinionTokenID
	if v == VenuePolymarket {
		s = snaps.polymarket
		token = o.PolymarketTokenID
	}
	if !s.HasAsk() {
		return HedgeLeg{}, false
	}
	return HedgeLeg{
		Outcome:  o.Label,
		Venue:    v,
		TokenID:  token,
		AskPrice: s.BestAsk,
		AskSize:  s.AskSize,
	}, true
}

func sumAsks(legs []HedgeLeg) float64 {
	total := 0.0
	for _, l := range legs {
		total += l.AskPrice
	}
	return total
}
