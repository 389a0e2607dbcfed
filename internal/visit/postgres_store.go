package visit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists visits in the relational database. Mutations run
// inside a transaction holding a row lock (SELECT ... FOR UPDATE), which
// serializes concurrent updates of the same visit id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore initializes a store backed by database/sql.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("visit: sql db required")
	}
	return &PostgresStore{db: db}
}

// Create inserts a new visit row.
func (s *PostgresStore) Create(ctx context.Context, v *Visit) error {
	cols, err := marshalColumns(v)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visits (
			id, created_at, status, patient_profile, intake_raw,
			intake_structured, provider_note, patient_summary,
			video_room_id, transcription_text, pharmacy_request, audit_events
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, v.ID, v.CreatedAt, string(v.Status),
		cols.patientProfile, cols.intakeRaw, cols.intakeStructured,
		nullString(v.ProviderNote), nullString(v.PatientSummary),
		nullString(v.VideoRoomID), nullString(v.TranscriptionText),
		cols.pharmacyRequest, cols.auditEvents,
	)
	if err != nil {
		return fmt.Errorf("visit: insert failed: %w", err)
	}
	return nil
}

// Get loads a visit by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Visit, error) {
	row := s.db.QueryRowContext(ctx, selectVisitQuery+` WHERE id = $1`, id)
	return scanVisit(row)
}

// Update applies fn to the row while holding a row lock.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*Visit) error) (*Visit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("visit: begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectVisitQuery+` WHERE id = $1 FOR UPDATE`, id)
	v, err := scanVisit(row)
	if err != nil {
		return nil, err
	}

	if err := fn(v); err != nil {
		return nil, err
	}

	cols, err := marshalColumns(v)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE visits SET
			status = $1, patient_profile = $2, intake_raw = $3,
			intake_structured = $4, provider_note = $5, patient_summary = $6,
			video_room_id = $7, transcription_text = $8,
			pharmacy_request = $9, audit_events = $10
		WHERE id = $11
	`, string(v.Status),
		cols.patientProfile, cols.intakeRaw, cols.intakeStructured,
		nullString(v.ProviderNote), nullString(v.PatientSummary),
		nullString(v.VideoRoomID), nullString(v.TranscriptionText),
		cols.pharmacyRequest, cols.auditEvents, v.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("visit: update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("visit: commit update: %w", err)
	}
	return v, nil
}

const selectVisitQuery = `
	SELECT id, created_at, status, patient_profile, intake_raw,
		   intake_structured, provider_note, patient_summary,
		   video_room_id, transcription_text, pharmacy_request, audit_events
	FROM visits`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*Visit, error) {
	var (
		v                Visit
		status           string
		patientProfile   []byte
		intakeRaw        []byte
		intakeStructured []byte
		providerNote     sql.NullString
		patientSummary   sql.NullString
		videoRoomID      sql.NullString
		transcription    sql.NullString
		pharmacyRequest  []byte
		auditEvents      []byte
	)

	err := row.Scan(&v.ID, &v.CreatedAt, &status,
		&patientProfile, &intakeRaw, &intakeStructured,
		&providerNote, &patientSummary, &videoRoomID, &transcription,
		&pharmacyRequest, &auditEvents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visit: scan failed: %w", err)
	}

	v.Status = Status(status)
	v.ProviderNote = providerNote.String
	v.PatientSummary = patientSummary.String
	v.VideoRoomID = videoRoomID.String
	v.TranscriptionText = transcription.String
	v.AuditEvents = []string{}

	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{patientProfile, &v.PatientProfile},
		{intakeRaw, &v.IntakeRaw},
		{intakeStructured, &v.IntakeStructured},
		{pharmacyRequest, &v.PharmacyRequest},
		{auditEvents, &v.AuditEvents},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("visit: decode column: %w", err)
		}
	}
	return &v, nil
}

type jsonColumns struct {
	patientProfile   []byte
	intakeRaw        []byte
	intakeStructured []byte
	pharmacyRequest  []byte
	auditEvents      []byte
}

func marshalColumns(v *Visit) (*jsonColumns, error) {
	cols := &jsonColumns{}
	for _, col := range []struct {
		src   any
		dst   *[]byte
		empty bool
	}{
		{v.PatientProfile, &cols.patientProfile, v.PatientProfile == nil},
		{v.IntakeRaw, &cols.intakeRaw, v.IntakeRaw == nil},
		{v.IntakeStructured, &cols.intakeStructured, v.IntakeStructured == nil},
		{v.PharmacyRequest, &cols.pharmacyRequest, v.PharmacyRequest == nil},
		{v.AuditEvents, &cols.auditEvents, false},
	} {
		if col.empty {
			continue
		}
		data, err := json.Marshal(col.src)
		if err != nil {
			return nil, fmt.Errorf("visit: encode column: %w", err)
		}
		*col.dst = data
	}
	return cols, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
