package storage

// sqlite.go — journal de alertas y ciclos.
//
// Dos tablas:
//   - `alerts`: una fila por alerta emitida, con las patas serializadas
//     como JSON. El cooldown ya depura los repetidos, así que todo insert
//     es señal.
//   - `cycles`: resumen ligero por ciclo de monitoreo.
// Prune automático al arrancar para mantener la DB acotada.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
    id             TEXT PRIMARY KEY,
    pair_name      TEXT NOT NULL,
    assignment     TEXT NOT NULL,
    sum_cost       REAL NOT NULL,
    edge_cents     REAL NOT NULL,
    deployable_usd REAL NOT NULL,
    days_to_expiry REAL NOT NULL,
    legs           TEXT NOT NULL,
    detected_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cycles (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at      DATETIME NOT NULL,
    pairs           INTEGER NOT NULL DEFAULT 0,
    evaluated       INTEGER NOT NULL DEFAULT 0,
    skipped         INTEGER NOT NULL DEFAULT 0,
    alerts          INTEGER NOT NULL DEFAULT 0,
    suppressed      INTEGER NOT NULL DEFAULT 0,
    best_edge_cents REAL    NOT NULL DEFAULT 0,
    fetch_ms        INTEGER NOT NULL DEFAULT 0,
    eval_ms         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_alerts_at   ON alerts(detected_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_pair ON alerts(pair_name);
CREATE INDEX IF NOT EXISTS idx_cycles_at   ON cycles(started_at DESC);
`

const (
	retentionAlerts = 90 * 24 * time.Hour
	retentionCycles = 30 * 24 * time.Hour
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada, aplica
// el schema y limpia los datos viejos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveAlerts persiste las alertas emitidas en el ciclo.
func (s *SQLiteStorage) SaveAlerts(ctx context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveAlerts: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alerts
			(id, pair_name, assignment, sum_cost, edge_cents,
			 deployable_usd, days_to_expiry, legs, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveAlerts: prepare: %w", err)
	}
	defer stmt.Close()

	for _, opp := range opportunities {
		legs, err := json.Marshal(opp.Legs)
		if err != nil {
			return fmt.Errorf("storage.SaveAlerts: encode legs for %s: %w", opp.PairName, err)
		}
		if _, err := stmt.ExecContext(ctx,
			opp.ID,
			opp.PairName,
			opp.Assignment,
			opp.SumCost,
			opp.EdgeCents,
			opp.DeployableUSD,
			opp.DaysToExpiry,
			string(legs),
			opp.DetectedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveAlerts: insert %s: %w", opp.PairName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveAlerts: commit: %w", err)
	}
	return nil
}

// SaveCycle persiste el resumen de un ciclo. Siempre una fila por ciclo.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, stats domain.CycleStats) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(started_at, pairs, evaluated, skipped, alerts, suppressed,
			 best_edge_cents, fetch_ms, eval_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stats.StartedAt.UTC(),
		stats.Pairs,
		stats.Evaluated,
		stats.Skipped,
		stats.Alerts,
		stats.Suppressed,
		stats.BestEdgeCents,
		stats.FetchElapsed.Milliseconds(),
		stats.EvalElapsed.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// GetHistory devuelve las alertas detectadas en el rango dado, las más
// recientes primero.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pair_name, assignment, sum_cost, edge_cents,
		       deployable_usd, days_to_expiry, legs, detected_at
		FROM alerts
		WHERE detected_at BETWEEN ? AND ?
		ORDER BY detected_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp  domain.Opportunity
			legs string
		)
		if err := rows.Scan(
			&opp.ID,
			&opp.PairName,
			&opp.Assignment,
			&opp.SumCost,
			&opp.EdgeCents,
			&opp.DeployableUSD,
			&opp.DaysToExpiry,
			&legs,
			&opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(legs), &opp.Legs); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: decode legs for %s: %w", opp.PairName, err)
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoffAlerts := time.Now().UTC().Add(-retentionAlerts)
	cutoffCycles := time.Now().UTC().Add(-retentionCycles)
	s.db.ExecContext(ctx, `DELETE FROM alerts WHERE detected_at < ?`, cutoffAlerts)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, cutoffCycles)
}
