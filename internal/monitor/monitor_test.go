package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbwatch/internal/domain"
	"github.com/alejandrodnm/arbwatch/internal/ports"
)

// --- fakes de ports ---

type fakeBooks struct {
	mu    sync.Mutex
	calls int
	snaps map[string]domain.Snapshot
	err   error
}

func (f *fakeBooks) FetchOrderBooks(_ context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[string]domain.Snapshot, len(tokenIDs))
	for _, tid := range tokenIDs {
		if s, ok := f.snaps[tid]; ok {
			s.FetchedAt = time.Now()
			out[tid] = s
		}
	}
	return out, f.err
}

func (f *fakeBooks) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]domain.Opportunity
}

func (f *fakeNotifier) Notify(_ context.Context, opps []domain.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]domain.Opportunity, len(opps))
	copy(batch, opps)
	f.batches = append(f.batches, batch)
	return nil
}

type fakeStorage struct {
	alerts []domain.Opportunity
	cycles []domain.CycleStats
}

func (f *fakeStorage) SaveAlerts(_ context.Context, opps []domain.Opportunity) error {
	f.alerts = append(f.alerts, opps...)
	return nil
}

func (f *fakeStorage) SaveCycle(_ context.Context, stats domain.CycleStats) error {
	f.cycles = append(f.cycles, stats)
	return nil
}

func (f *fakeStorage) GetHistory(_ context.Context, _, _ time.Time) ([]domain.Opportunity, error) {
	return f.alerts, nil
}

func (f *fakeStorage) Close() error { return nil }

type fakeExpiry struct {
	end   time.Time
	calls int
}

func (f *fakeExpiry) EventEndDate(_ context.Context, _ string) (time.Time, error) {
	f.calls++
	return f.end, nil
}

// --- fixtures ---

func resolvedMapping(end time.Time) domain.TokenMapping {
	return domain.TokenMapping{
		SchemaVersion: domain.MappingSchemaVersion,
		PairName:      "btc-150k",
		Type:          domain.PairBinary,
		OpinionURL:    "https://opinion.example/market?topicId=7",
		PolymarketURL: "https://polymarket.example/event/btc-150k",
		Fingerprint:   "f1f1f1f1f1f1f1f1",
		ResolvedAt:    time.Now().Add(-time.Hour),
		EndDate:       end,
		Outcomes: []domain.OutcomeMapping{
			{Label: "Yes", OpinionTokenID: "op-y", PolymarketTokenID: "pm-y"},
			{Label: "No", OpinionTokenID: "op-n", PolymarketTokenID: "pm-n"},
		},
	}
}

func snap(v domain.Venue, tid string, ask, size float64) domain.Snapshot {
	return domain.Snapshot{
		Venue:   v,
		TokenID: tid,
		BestBid: ask - 0.02,
		BestAsk: ask,
		AskSize: size,
	}
}

func defaultConfig() Config {
	return Config{
		Interval:        3 * time.Second,
		DeltaCents:      1.8,
		Cooldown:        120 * time.Second,
		MinDeployUSD:    20,
		MaxDaysToExpiry: 60,
		Once:            true,
	}
}

// booksWithEdge deja op:Yes + pm:No como el hedge más barato (0.95).
func booksWithEdge() (*fakeBooks, *fakeBooks) {
	op := &fakeBooks{snaps: map[string]domain.Snapshot{
		"op-y": snap(domain.VenueOpinion, "op-y", 0.40, 100),
		"op-n": snap(domain.VenueOpinion, "op-n", 0.58, 100),
	}}
	pm := &fakeBooks{snaps: map[string]domain.Snapshot{
		"pm-y": snap(domain.VenuePolymarket, "pm-y", 0.60, 100),
		"pm-n": snap(domain.VenuePolymarket, "pm-n", 0.55, 80),
	}}
	return op, pm
}

func runOnce(t *testing.T, m *Monitor) {
	t.Helper()
	require.NoError(t, m.Run(context.Background()))
}

// --- ciclos ---

func TestRun_OnceEmitsQualifyingAlert(t *testing.T) {
	op, pm := booksWithEdge()
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(30 * 24 * time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Notifiers:  []ports.Notifier{notifier},
		Storage:    storage,
	})
	runOnce(t, m)

	require.Len(t, notifier.batches, 1)
	require.Len(t, notifier.batches[0], 1)

	alert := notifier.batches[0][0]
	assert.Equal(t, "btc-150k", alert.PairName)
	assert.Equal(t, "op:Yes+pm:No", alert.Assignment)
	assert.InDelta(t, 0.95, alert.SumCost, 1e-9)
	assert.InDelta(t, 5.0, alert.EdgeCents, 1e-9)
	assert.InDelta(t, 40.0, alert.DeployableUSD, 1e-9)
	assert.NotEmpty(t, alert.ID)

	require.Len(t, storage.alerts, 1)
	require.Len(t, storage.cycles, 1)
	assert.Equal(t, 1, storage.cycles[0].Evaluated)
	assert.Equal(t, 1, storage.cycles[0].Alerts)
	assert.InDelta(t, 5.0, storage.cycles[0].BestEdgeCents, 1e-9)
}

func TestRun_CooldownSuppressesRepeat(t *testing.T) {
	op, pm := booksWithEdge()
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(30 * 24 * time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Notifiers:  []ports.Notifier{notifier},
		Storage:    storage,
	})
	runOnce(t, m)
	runOnce(t, m)

	assert.Len(t, notifier.batches, 1, "second cycle must be muted by cooldown")
	require.Len(t, storage.cycles, 2)
	assert.Equal(t, 0, storage.cycles[1].Alerts)
	assert.Equal(t, 1, storage.cycles[1].Suppressed)
}

func TestRun_BelowThresholdsNoAlert(t *testing.T) {
	op, pm := booksWithEdge()
	// Sube el ask de pm:No para dejar el mejor hedge en 0.99 (edge 1.0 < delta).
	pm.snaps["pm-n"] = snap(domain.VenuePolymarket, "pm-n", 0.59, 80)
	op.snaps["op-n"] = snap(domain.VenueOpinion, "op-n", 0.70, 100)
	pm.snaps["pm-y"] = snap(domain.VenuePolymarket, "pm-y", 0.70, 100)
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(24 * time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Notifiers:  []ports.Notifier{notifier},
		Storage:    storage,
	})
	runOnce(t, m)

	assert.Empty(t, notifier.batches)
	require.Len(t, storage.cycles, 1)
	assert.Equal(t, 1, storage.cycles[0].Evaluated)
	assert.InDelta(t, 1.0, storage.cycles[0].BestEdgeCents, 1e-9)
}

func TestRun_MissingSnapshotSkipsPair(t *testing.T) {
	op, pm := booksWithEdge()
	delete(pm.snaps, "pm-n")
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(24 * time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Notifiers:  []ports.Notifier{notifier},
		Storage:    storage,
	})
	runOnce(t, m)

	assert.Empty(t, notifier.batches)
	require.Len(t, storage.cycles, 1)
	assert.Equal(t, 0, storage.cycles[0].Evaluated)
	assert.Equal(t, 1, storage.cycles[0].Skipped)
}

func TestRun_ExpiredPairNotFetched(t *testing.T) {
	op, pm := booksWithEdge()
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(-time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Storage:    storage,
	})
	runOnce(t, m)

	assert.Zero(t, op.callCount(), "expired pairs must not trigger book fetches")
	assert.Zero(t, pm.callCount())
	require.Len(t, storage.cycles, 1)
	assert.Equal(t, 1, storage.cycles[0].Skipped)
}

func TestRun_BeyondExpiryWindowSkipped(t *testing.T) {
	op, pm := booksWithEdge()
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Now().Add(90 * 24 * time.Hour))}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Storage:    storage,
	})
	runOnce(t, m)

	assert.Zero(t, op.callCount())
	require.Len(t, storage.cycles, 1)
	assert.Equal(t, 1, storage.cycles[0].Skipped)
}

func TestRun_UnknownExpiryStillMonitored(t *testing.T) {
	op, pm := booksWithEdge()
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Time{})}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Notifiers:  []ports.Notifier{notifier},
		Storage:    storage,
	})
	runOnce(t, m)

	require.Len(t, notifier.batches, 1)
	alert := notifier.batches[0][0]
	assert.InDelta(t, -1.0, alert.DaysToExpiry, 1e-9)
}

func TestRun_ExpiryBackfillFiltersExpired(t *testing.T) {
	op, pm := booksWithEdge()
	expiry := &fakeExpiry{end: time.Now().Add(-time.Hour)}
	storage := &fakeStorage{}

	m := New(defaultConfig(), []domain.TokenMapping{resolvedMapping(time.Time{})}, Deps{
		Opinion:    op,
		Polymarket: pm,
		Expiry:     expiry,
		Storage:    storage,
	})
	runOnce(t, m)

	assert.Equal(t, 1, expiry.calls)
	assert.Zero(t, op.callCount())
	assert.Equal(t, 1, storage.cycles[0].Skipped)
}

func TestNew_DropsUnresolvedMappings(t *testing.T) {
	broken := resolvedMapping(time.Time{})
	broken.Outcomes = broken.Outcomes[:1]

	m := New(defaultConfig(), []domain.TokenMapping{broken}, Deps{})
	assert.Zero(t, m.Pairs())
}
