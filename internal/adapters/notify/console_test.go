package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbwatch/internal/adapters/notify"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

func makeOpp(pair string, edge float64) domain.Opportunity {
	return domain.Opportunity{
		ID:            "test-id",
		PairName:      pair,
		Assignment:    "op:Yes+pm:No",
		SumCost:       1 - edge/100,
		EdgeCents:     edge,
		DeployableUSD: 40,
		DaysToExpiry:  12.5,
		DetectedAt:    time.Now(),
		Legs: []domain.HedgeLeg{
			{Outcome: "Yes", Venue: domain.VenueOpinion, TokenID: "op-y", AskPrice: 0.40, AskSize: 100},
			{Outcome: "No", Venue: domain.VenuePolymarket, TokenID: "pm-n", AskPrice: 1 - edge/100 - 0.40, AskSize: 80},
		},
	}
}

func TestConsole_NotifyCompact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.Notify(context.Background(), []domain.Opportunity{
		makeOpp("btc-150k", 5.0),
		makeOpp("fed-march", 2.4),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "btc-150k")
	assert.Contains(t, out, "fed-march")
	assert.Contains(t, out, "edge 5.0c")
	assert.Contains(t, out, "op:Yes@0.400")
}

func TestConsole_NotifyTable(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.Notify(context.Background(), []domain.Opportunity{makeOpp("btc-150k", 5.0)})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "1 arbitrage alerts")
	assert.Contains(t, out, "btc-150k")
	assert.Contains(t, out, "op:Yes+pm:No")
	assert.Contains(t, out, "0.9500")
	assert.Contains(t, out, "$40.00")
}

func TestConsole_NotifyEmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Empty(t, buf.String())
}
