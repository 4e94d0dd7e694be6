// Package archive persists captured snapshots to embedded SQLite. It is the
// durability mechanism behind the bounded in-memory snapshot store: rows
// outlive capacity eviction and survive restarts.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose"

	"github.com/dmarkhas/gameperf/internal/models"
)

func unixToTime(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*1e9))
}

// Migrate applies the archive schema migrations from dir.
func Migrate(conn *sqlx.DB, dir string) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(conn.DB, dir)
}

// snapshotRow is the flattened database form of a snapshot. Structured fields
// are stored as JSON text; SQLite is an archive here, not a query engine.
type snapshotRow struct {
	ID           uint64         `db:"id"`
	CapturedAt   float64        `db:"captured_at"` // unix seconds
	Metrics      string         `db:"metrics"`
	BudgetStatus sql.NullString `db:"budget_status"`
	Context      sql.NullString `db:"context"`
	ImageRef     sql.NullString `db:"image_ref"`
}

// Repository reads and writes archived snapshots.
type Repository struct {
	conn *sqlx.DB
}

// NewRepository creates a Repository over an opened archive database.
func NewRepository(conn *sqlx.DB) *Repository {
	return &Repository{conn: conn}
}

// Save upserts one snapshot.
func (r *Repository) Save(ctx context.Context, snap *models.Snapshot) error {
	row, err := toRow(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snap.ID, err)
	}
	_, err = r.conn.NamedExecContext(ctx, `
		INSERT INTO snapshots (id, captured_at, metrics, budget_status, context, image_ref)
		VALUES (:id, :captured_at, :metrics, :budget_status, :context, :image_ref)
		ON CONFLICT (id) DO UPDATE
		SET captured_at = EXCLUDED.captured_at,
		    metrics = EXCLUDED.metrics,
		    budget_status = EXCLUDED.budget_status,
		    context = EXCLUDED.context,
		    image_ref = EXCLUDED.image_ref
	`, row)
	return err
}

// Get fetches one archived snapshot by id; returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id uint64) (*models.Snapshot, error) {
	var row snapshotRow
	err := r.conn.GetContext(ctx, &row, `
		SELECT id, captured_at, metrics, budget_status, context, image_ref
		FROM snapshots WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap, err := fromRow(&row)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns archived snapshots ordered by capture time, newest first,
// limited to limit rows (0 means no limit).
func (r *Repository) List(ctx context.Context, limit int) ([]models.Snapshot, error) {
	query := `
		SELECT id, captured_at, metrics, budget_status, context, image_ref
		FROM snapshots ORDER BY captured_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []snapshotRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]models.Snapshot, 0, len(rows))
	for i := range rows {
		snap, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

func toRow(snap *models.Snapshot) (*snapshotRow, error) {
	metrics, err := json.Marshal(snap.Metrics)
	if err != nil {
		return nil, err
	}
	row := &snapshotRow{
		ID:         snap.ID,
		CapturedAt: float64(snap.Timestamp.UnixNano()) / 1e9,
		Metrics:    string(metrics),
	}
	if len(snap.BudgetStatus) > 0 {
		b, err := json.Marshal(snap.BudgetStatus)
		if err != nil {
			return nil, err
		}
		row.BudgetStatus = sql.NullString{String: string(b), Valid: true}
	}
	if len(snap.Context) > 0 {
		b, err := json.Marshal(snap.Context)
		if err != nil {
			return nil, err
		}
		row.Context = sql.NullString{String: string(b), Valid: true}
	}
	if snap.ImageRef != "" {
		row.ImageRef = sql.NullString{String: snap.ImageRef, Valid: true}
	}
	return row, nil
}

func fromRow(row *snapshotRow) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		ID:        row.ID,
		Timestamp: unixToTime(row.CapturedAt),
	}
	if err := json.Unmarshal([]byte(row.Metrics), &snap.Metrics); err != nil {
		return nil, err
	}
	if row.BudgetStatus.Valid {
		if err := json.Unmarshal([]byte(row.BudgetStatus.String), &snap.BudgetStatus); err != nil {
			return nil, err
		}
	}
	if row.Context.Valid {
		if err := json.Unmarshal([]byte(row.Context.String), &snap.Context); err != nil {
			return nil, err
		}
	}
	if row.ImageRef.Valid {
		snap.ImageRef = row.ImageRef.String
	}
	return snap, nil
}
