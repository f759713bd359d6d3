// Package telemetry implements the "Result & telemetry hooks" component:
// it persists per-tick snapshots and the final EpisodeResult to SQLite,
// and renders an end-of-episode trajectory plot. Writes are
// batched and flushed only at shutdown — logging/IO is either buffered or
// confined to on_init/on_shutdown — so the telemetry node never performs
// blocking I/O from the per-tick scheduling path.
package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sink wraps the SQLite database backing one episode's telemetry.
type Sink struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite database at path and applies
// migrations up to the latest version.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	s := &Sink{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) migrateUp() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("telemetry: migrations subtree: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("telemetry: iofs source driver: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("telemetry: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("telemetry: migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("telemetry: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[telemetry-migrate] "+format, v...) }
func (l *migrateLogger) Verbose() bool                          { return false }

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// TickRecord is one buffered row of per-tick telemetry.
type TickRecord struct {
	Tick     int64
	SimTime  float64
	State    model.VehicleState
	Cmd      model.ControlCommand
}

// FlushTicks writes every buffered tick record in a single transaction.
func (s *Sink) FlushTicks(ctx context.Context, records []TickRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("telemetry: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO episode_ticks
			(tick, sim_time, x, y, yaw, vx, steer_eff, steer_cmd, accel_cmd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("telemetry: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Tick, r.SimTime,
			r.State.X, r.State.Y, r.State.Yaw, r.State.Vx, r.State.SteerEff,
			r.Cmd.SteerCmd, r.Cmd.AccelCmd); err != nil {
			return fmt.Errorf("telemetry: insert tick %d: %w", r.Tick, err)
		}
	}
	return tx.Commit()
}

// WriteResult persists the final EpisodeResult alongside a snapshot of the
// configuration that produced it.
func (s *Sink) WriteResult(ctx context.Context, result model.EpisodeResult, configSnapshot string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episode_results
			(episode_id, status, distance_travelled, checkpoints_passed, max_lateral_deviation, duration_sim, erroring_node, config_snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.EpisodeID, string(result.Status), result.DistanceTravelled, result.CheckpointsPassed,
		result.MaxLateralDeviation, result.DurationSim, result.ErroringNode, configSnapshot)
	if err != nil {
		return fmt.Errorf("telemetry: insert result: %w", err)
	}
	return nil
}
