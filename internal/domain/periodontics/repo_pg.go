package periodontics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatiGranjero/MuelitaSys/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const measurementCols = "tooth, site, ps, mg, ni, bleeding, suppuration, mobility, furcation, note"

type measurementRepoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns a PostgreSQL-backed measurement repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &measurementRepoPG{pool: pool}
}

func (r *measurementRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *measurementRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Measurement, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+measurementCols+` FROM periodontal_measurements
		 WHERE patient_id = $1 ORDER BY tooth, site`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query periodontal measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periodontal measurements: %w", err)
	}
	return out, nil
}

func scanMeasurement(rows pgx.Rows) (Measurement, error) {
	var (
		m  Measurement
		ni *float64
	)
	err := rows.Scan(&m.Tooth, &m.Site, &m.ProbingDepth, &m.GingivalMargin, &ni,
		&m.Bleeding, &m.Suppuration, &m.Mobility, &m.Furcation, &m.Note)
	if err != nil {
		return Measurement{}, fmt.Errorf("scan periodontal measurement: %w", err)
	}
	if ni != nil {
		m.AttachmentLevel = MM(*ni)
	}
	return m, nil
}

func (r *measurementRepoPG) ReplaceForPatient(ctx context.Context, patientID uuid.UUID, records []Measurement) error {
	if tx := db.TxFromContext(ctx); tx != nil {
		return replaceIn(ctx, tx, patientID, records)
	}
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		return replaceIn(ctx, db.TxFromContext(ctx), patientID, records)
	})
}

func replaceIn(ctx context.Context, tx pgx.Tx, patientID uuid.UUID, records []Measurement) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM periodontal_measurements WHERE patient_id = $1`, patientID,
	); err != nil {
		return fmt.Errorf("delete periodontal measurements: %w", err)
	}

	batch := &pgx.Batch{}
	for _, m := range records {
		var ni *float64
		if m.AttachmentLevel.Valid {
			v := m.AttachmentLevel.MM
			ni = &v
		}
		batch.Queue(
			`INSERT INTO periodontal_measurements
			 (patient_id, `+measurementCols+`, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
			patientID, m.Tooth, m.Site, m.ProbingDepth, m.GingivalMargin, ni,
			m.Bleeding, m.Suppuration, m.Mobility, m.Furcation, m.Note,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert periodontal measurement: %w", err)
		}
	}
	return nil
}
