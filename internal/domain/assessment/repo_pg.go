package assessment

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinimetric/clinimetric/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sessionCols = `id, scale_id, scale_code, item_count, has_instructions, scale_mode,
	patient_id, patient_name, administrator_id, mode, delivery, status,
	card_kind, card_item, responses, created_at, updated_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*Session, error) {
	var (
		s         Session
		patientID *uuid.UUID
		responses []byte
	)
	err := row.Scan(&s.ID, &s.ScaleID, &s.ScaleCode, &s.ItemCount, &s.HasInstructions, &s.ScaleMode,
		&patientID, &s.PatientName, &s.AdministratorID, &s.Mode, &s.Delivery, &s.Status,
		&s.Card.Kind, &s.Card.Item, &responses, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if patientID != nil {
		s.PatientID = *patientID
	}
	s.Responses = make(map[int]RecordedResponse)
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &s.Responses); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO assessment_session (id, scale_id, scale_code, item_count, has_instructions,
			scale_mode, patient_id, patient_name, administrator_id, mode, delivery, status,
			card_kind, card_item, responses)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		s.ID, s.ScaleID, s.ScaleCode, s.ItemCount, s.HasInstructions,
		s.ScaleMode, nullableUUID(s.PatientID), s.PatientName, s.AdministratorID, s.Mode, s.Delivery, s.Status,
		s.Card.Kind, s.Card.Item, responses)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM assessment_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE assessment_session SET patient_id=$2, patient_name=$3, mode=$4, delivery=$5,
			status=$6, card_kind=$7, card_item=$8, responses=$9, updated_at=NOW()
		WHERE id = $1`,
		s.ID, nullableUUID(s.PatientID), s.PatientName, s.Mode, s.Delivery,
		s.Status, s.Card.Kind, s.Card.Item, responses)
	return err
}

func (r *sessionRepoPG) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM assessment_session`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+sessionCols+` FROM assessment_session ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *sessionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_session WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+sessionCols+` FROM assessment_session WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *sessionRepoPG) collect(rows pgx.Rows, total int) ([]*Session, int, error) {
	var items []*Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// =========== Result Repository ===========

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

func (r *resultRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const resultCols = `id, session_id, scale_id, scale_code, total_score, result, scored_at`

func (r *resultRepoPG) scanResult(row pgx.Row) (*ScoredResult, error) {
	var (
		res ScoredResult
		doc []byte
	)
	if err := row.Scan(&res.ID, &res.SessionID, &res.ScaleID, &res.ScaleCode, &res.Total, &doc, &res.ScoredAt); err != nil {
		return nil, err
	}
	id, sessionID, scaleID, code, total, scoredAt := res.ID, res.SessionID, res.ScaleID, res.ScaleCode, res.Total, res.ScoredAt
	if err := json.Unmarshal(doc, &res); err != nil {
		return nil, err
	}
	res.ID, res.SessionID, res.ScaleID, res.ScaleCode, res.Total, res.ScoredAt = id, sessionID, scaleID, code, total, scoredAt
	return &res, nil
}

func (r *resultRepoPG) Create(ctx context.Context, res *ScoredResult) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO scored_result (id, session_id, scale_id, scale_code, total_score, result, scored_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		res.ID, res.SessionID, res.ScaleID, res.ScaleCode, res.Total, doc, res.ScoredAt)
	return err
}

func (r *resultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScoredResult, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM scored_result WHERE id = $1`, id))
}

func (r *resultRepoPG) GetBySession(ctx context.Context, sessionID uuid.UUID) (*ScoredResult, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+resultCols+` FROM scored_result WHERE session_id = $1`, sessionID))
}

func (r *resultRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ScoredResult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM scored_result r
		JOIN assessment_session s ON s.id = r.session_id
		WHERE s.patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT r.id, r.session_id, r.scale_id, r.scale_code, r.total_score, r.result, r.scored_at
		FROM scored_result r
		JOIN assessment_session s ON s.id = r.session_id
		WHERE s.patient_id = $1 ORDER BY r.scored_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ScoredResult
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, nil
}

// =========== Patient Directory ===========

// patientDirectoryPG reads the minimal patient identity the core is allowed
// to see from the record store's patient table.
type patientDirectoryPG struct{ pool *pgxpool.Pool }

func NewPatientDirectoryPG(pool *pgxpool.Pool) PatientDirectory {
	return &patientDirectoryPG{pool: pool}
}

func (r *patientDirectoryPG) GetPatient(ctx context.Context, id uuid.UUID) (*PatientRef, error) {
	var p PatientRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, display_name FROM patient WHERE id = $1`, id).Scan(&p.ID, &p.DisplayName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
