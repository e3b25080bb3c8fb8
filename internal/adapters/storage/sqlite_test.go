package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbwatch/internal/adapters/storage"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

func makeAlert(id, pair string, edge float64) domain.Opportunity {
	return domain.Opportunity{
		ID:            id,
		PairName:      pair,
		Assignment:    "op:Yes+pm:No",
		SumCost:       1 - edge/100,
		EdgeCents:     edge,
		DeployableUSD: 40,
		DaysToExpiry:  12.5,
		DetectedAt:    time.Now().UTC().Truncate(time.Second),
		Legs: []domain.HedgeLeg{
			{Outcome: "Yes", Venue: domain.VenueOpinion, TokenID: "op-y", AskPrice: 0.40, AskSize: 100},
			{Outcome: "No", Venue: domain.VenuePolymarket, TokenID: "pm-n", AskPrice: 0.55, AskSize: 80},
		},
	}
}

func TestSQLiteStorage_SaveAndGetHistory(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	alerts := []domain.Opportunity{
		makeAlert("id-1", "btc-150k", 5.0),
		makeAlert("id-2", "fed-march", 2.4),
	}
	require.NoError(t, db.SaveAlerts(context.Background(), alerts))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, history, 2)

	byID := map[string]domain.Opportunity{}
	for _, h := range history {
		byID[h.ID] = h
	}
	got := byID["id-1"]
	assert.Equal(t, "btc-150k", got.PairName)
	assert.Equal(t, "op:Yes+pm:No", got.Assignment)
	assert.InDelta(t, 5.0, got.EdgeCents, 0.001)
	assert.InDelta(t, 40.0, got.DeployableUSD, 0.001)
	require.Len(t, got.Legs, 2)
	assert.Equal(t, domain.VenueOpinion, got.Legs[0].Venue)
	assert.InDelta(t, 0.40, got.Legs[0].AskPrice, 0.001)
}

func TestSQLiteStorage_SaveEmptySlice(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.SaveAlerts(context.Background(), nil))
}

func TestSQLiteStorage_GetHistoryRespectsRange(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	old := makeAlert("id-old", "btc-150k", 5.0)
	old.DetectedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.SaveAlerts(context.Background(), []domain.Opportunity{old}))

	history, err := db.GetHistory(context.Background(),
		time.Now().UTC().Add(-time.Hour),
		time.Now().UTC(),
	)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = db.GetHistory(context.Background(),
		time.Now().UTC().Add(-72*time.Hour),
		time.Now().UTC(),
	)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSQLiteStorage_SaveCycle(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	stats := domain.CycleStats{
		StartedAt:     time.Now().UTC(),
		Pairs:         10,
		Evaluated:     8,
		Skipped:       2,
		Alerts:        1,
		Suppressed:    1,
		BestEdgeCents: 5.0,
		FetchElapsed:  120 * time.Millisecond,
		EvalElapsed:   3 * time.Millisecond,
	}
	assert.NoError(t, db.SaveCycle(context.Background(), stats))
	assert.NoError(t, db.SaveCycle(context.Background(), stats))
}
