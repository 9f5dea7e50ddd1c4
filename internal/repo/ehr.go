package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestordeclinica/backend/internal/crypto"
)

var EHREventTypes = []string{"consultation", "evolution", "prescription", "exam", "note", "attachment"}

func ValidEHREventType(t string) bool {
	for _, v := range EHREventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EHREvent é um item da linha do tempo do prontuário. Content trafega em claro aqui e só é
// cifrado na gravação.
type EHREvent struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ProfessionalID *uuid.UUID `json:"professional_id"`
	AuthorID       *uuid.UUID `json:"author_id"`
	EventType      string     `json:"event_type"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	OccurredAt     time.Time  `json:"occurred_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type EHRStore struct {
	Pool *pgxpool.Pool
	Keys *crypto.Keyring
}

func NewEHRStore(pool *pgxpool.Pool, keys *crypto.Keyring) *EHRStore {
	return &EHRStore{Pool: pool, Keys: keys}
}

const ehrColumns = `id, patient_id, professional_id, author_id, event_type, title,
	content_encrypted, content_nonce, content_key_version, occurred_at, created_at`

func (s *EHRStore) scan(row pgx.Row) (*EHREvent, error) {
	var e EHREvent
	var sealed crypto.Sealed
	err := row.Scan(&e.ID, &e.PatientID, &e.ProfessionalID, &e.AuthorID, &e.EventType, &e.Title,
		&sealed.Ciphertext, &sealed.Nonce, &sealed.KeyVersion, &e.OccurredAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	plain, err := s.Keys.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt ehr event %s: %w", e.ID, err)
	}
	e.Content = string(plain)
	return &e, nil
}

// ListByPatient ordena do mais recente para o mais antigo. types vazio = todos.
func (s *EHRStore) ListByPatient(ctx context.Context, patientID uuid.UUID, types []string, limit, offset int) ([]EHREvent, int, error) {
	var total int
	where := `patient_id = $1 AND (cardinality($2::text[]) = 0 OR event_type = ANY($2))`
	if types == nil {
		types = []string{}
	}
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM ehr_events WHERE `+where, patientID, types).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ehrColumns+` FROM ehr_events WHERE `+where+`
		ORDER BY occurred_at DESC, created_at DESC LIMIT $3 OFFSET $4
	`, patientID, types, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []EHREvent
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *e)
	}
	return list, total, rows.Err()
}

func (s *EHRStore) Get(ctx context.Context, id uuid.UUID) (*EHREvent, error) {
	e, err := s.scan(s.Pool.QueryRow(ctx, `SELECT `+ehrColumns+` FROM ehr_events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *EHRStore) Create(ctx context.Context, e *EHREvent) error {
	newID(&e.ID)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	sealed, err := s.Keys.Seal([]byte(e.Content))
	if err != nil {
		return fmt.Errorf("encrypt ehr event: %w", err)
	}
	err = s.Pool.QueryRow(ctx, `
		INSERT INTO ehr_events (id, patient_id, professional_id, author_id, event_type, title,
			content_encrypted, content_nonce, content_key_version, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at
	`, e.ID, e.PatientID, e.ProfessionalID, e.AuthorID, e.EventType, e.Title,
		sealed.Ciphertext, sealed.Nonce, sealed.KeyVersion, e.OccurredAt).Scan(&e.CreatedAt)
	return mapErr(err)
}
