package odontogram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatiGranjero/MuelitaSys/internal/platform/db"
	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type snapshotRepoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns a PostgreSQL-backed snapshot repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &snapshotRepoPG{pool: pool}
}

func (r *snapshotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *snapshotRepoPG) LoadSnapshot(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme) (Snapshot, error) {
	var raw []byte
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT data FROM odontograms WHERE patient_id = $1 AND scheme = $2`,
		patientID, string(scheme),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query odontogram: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode odontogram data: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepoPG) SaveSnapshot(ctx context.Context, patientID uuid.UUID, scheme fdi.Scheme, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode odontogram data: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx,
		`INSERT INTO odontograms (patient_id, scheme, data, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (patient_id, scheme)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		patientID, string(scheme), raw,
	)
	if err != nil {
		return fmt.Errorf("upsert odontogram: %w", err)
	}
	return nil
}
