package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Opportunity is a qualifying hedge promoted to an alert.
type Opportunity struct {
	ID            string
	PairName      string
	Assignment    string
	SumCost       float64
	EdgeCents     float64
	DeployableUSD float64
	DaysToExpiry  float64
	Legs          []HedgeLeg
	DetectedAt    time.Time
}

// NewOpportunity stamps a qualifying hedge with an id and detection time.
func NewOpportunity(h Hedge, now time.Time) Opportunity {
	return Opportunity{
		ID:            uuid.NewString(),
		PairName:      h.PairName,
		Assignment:    h.Assignment,
		SumCost:       h.SumCost,
		EdgeCents:     h.EdgeCents,
		DeployableUSD: h.DeployableUSD,
		DaysToExpiry:  h.DaysToExpiry,
		Legs:          h.Legs,
		DetectedAt:    now,
	}
}

// CooldownKey identifies the opportunity for alert de-duplication.
// The same pair with a different venue assignment is a different opportunity.
func (o Opportunity) CooldownKey() string {
	return o.PairName + "|" + o.Assignment
}

// Headline returns a one-line human summary used by logs and compact output.
func (o Opportunity) Headline() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: buy", o.PairName)
	for i, l := range o.Legs {
		if i > 0 {
			sb.WriteString(" +")
		}
		fmt.Fprintf(&sb, " %s:%s@%.3f", l.Venue.Code(), l.Outcome, l.AskPrice)
	}
	fmt.Fprintf(&sb, " = %.3f (edge %.1fc, deploy $%.0f)", o.SumCost, o.EdgeCents, o.DeployableUSD)
	return sb.String()
}
