package patient

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
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, document, first_name, last_name, birth_date,
	phone, email, address, notes, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Document, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Phone, &p.Email, &p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, document, first_name, last_name, birth_date,
			phone, email, address, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Document, p.FirstName, p.LastName, p.BirthDate,
		p.Phone, p.Email, p.Address, p.Notes)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByDocument(ctx context.Context, document string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE document = $1`, document))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET document=$2, first_name=$3, last_name=$4, birth_date=$5,
			phone=$6, email=$7, address=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Document, p.FirstName, p.LastName, p.BirthDate,
		p.Phone, p.Email, p.Address, p.Notes)
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

// Search matches the query against names and the document number. The
// pattern is anchored nowhere so partial entries typed at the front desk
// still hit.
func (r *patientRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + q + "%"
	const where = `WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR document ILIKE $1`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients `+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients `+where+` ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *patientRepoPG) GetHistory(ctx context.Context, patientID uuid.UUID) (*MedicalHistory, error) {
	var data []byte
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT data FROM medical_histories WHERE patient_id = $1`, patientID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return &MedicalHistory{PatientID: patientID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query patient history: %w", err)
	}

	var h MedicalHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode patient history: %w", err)
	}
	h.PatientID = patientID
	return &h, nil
}

func (r *patientRepoPG) SaveHistory(ctx context.Context, h *MedicalHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode patient history: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_histories (patient_id, data)
		VALUES ($1, $2)
		ON CONFLICT (patient_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		h.PatientID, data)
	return err
}
