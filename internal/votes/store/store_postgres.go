package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"electiondesk/internal/votes/models"
	"electiondesk/pkg/platform/sentinel"
	txcontext "electiondesk/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

const selectColumns = `
	SELECT id, center_id, center_name, district, thana, total_votes, total_voters,
		submitter_id, submitter_name, submitter_contact, submitter_role, breakdown,
		submitted_at, status, verifier_id, verifier_name, verifier_contact, verifier_role,
		verified_at, reason, correction_of
	FROM vote_records`

// PostgresStore persists vote records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *models.VoteRecord) error {
	breakdown, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	var correctionOf uuid.NullUUID
	if record.CorrectionOf != nil {
		correctionOf = uuid.NullUUID{UUID: uuid.UUID(*record.CorrectionOf), Valid: true}
	}

	query := `
		INSERT INTO vote_records (
			id, center_id, center_name, district, thana, total_votes, total_voters,
			submitter_id, submitter_name, submitter_contact, submitter_role, breakdown,
			submitted_at, status, reason, correction_of
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		string(record.CenterID),
		record.CenterName,
		record.Location.District,
		record.Location.Thana,
		record.TotalVotes,
		record.TotalVoters,
		record.Submitter.ID,
		record.Submitter.Name,
		record.Submitter.Contact,
		string(record.Submitter.Role),
		breakdown,
		record.SubmittedAt,
		string(record.Status),
		record.Reason,
		correctionOf,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vote record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.RecordID) (*models.VoteRecord, error) {
	record, err := scanRecord(txcontext.Use(ctx, s.db).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vote record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByCenter(ctx context.Context, centerID models.CenterID) ([]models.VoteRecord, error) {
	return s.list(ctx, selectColumns+` WHERE center_id = $1 ORDER BY submitted_at, seq`, string(centerID))
}

// ListByStatus returns records in any of the given statuses. No statuses means all records.
func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.VoteRecord, error) {
	if len(statuses) == 0 {
		return s.list(ctx, selectColumns+` ORDER BY submitted_at, seq`)
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.list(ctx, selectColumns+` WHERE status = ANY($1) ORDER BY submitted_at, seq`, pq.Array(names))
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// then writes the decision with an UPDATE guarded on status = 'submitted'.
// A guard miss is ErrInvalidState.
func (s *PostgresStore) Execute(ctx context.Context, id models.RecordID, validate func(*models.VoteRecord) error, mutate func(*models.VoteRecord)) (*models.VoteRecord, error) {
	var result *models.VoteRecord
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		q := txcontext.Use(ctx, s.db)
		record, err := scanRecord(q.QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock vote record: %w", err)
		}
		if err := validate(record); err != nil {
			return err
		}
		mutate(record)

		var verifierID, verifierName, verifierContact, verifierRole sql.NullString
		if v := record.Verifier; v != nil {
			verifierID = sql.NullString{String: v.ID, Valid: true}
			verifierName = sql.NullString{String: v.Name, Valid: true}
			verifierContact = sql.NullString{String: v.Contact, Valid: true}
			verifierRole = sql.NullString{String: string(v.Role), Valid: true}
		}
		res, err := q.ExecContext(ctx, `
			UPDATE vote_records
			SET status = $2, verifier_id = $3, verifier_name = $4, verifier_contact = $5,
				verifier_role = $6, verified_at = $7, reason = $8
			WHERE id = $1 AND status = 'submitted'
		`, uuid.UUID(id), string(record.Status), verifierID, verifierName, verifierContact,
			verifierRole, record.VerifiedAt, record.Reason)
		if err != nil {
			return fmt.Errorf("update vote record: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update vote record rows affected: %w", err)
		}
		if rows == 0 {
			return sentinel.ErrInvalidState
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]models.VoteRecord, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vote records: %w", err)
	}
	defer rows.Close()

	var out []models.VoteRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote record: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote records: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.VoteRecord, error) {
	var (
		r            models.VoteRecord
		id           uuid.UUID
		centerID     string
		role         string
		status       string
		breakdown    []byte
		verifiedAt   sql.NullTime
		correctionOf uuid.NullUUID

		verifierID, verifierName, verifierContact, verifierRole sql.NullString
	)
	if err := row.Scan(
		&id, &centerID, &r.CenterName, &r.Location.District, &r.Location.Thana,
		&r.TotalVotes, &r.TotalVoters,
		&r.Submitter.ID, &r.Submitter.Name, &r.Submitter.Contact, &role, &breakdown,
		&r.SubmittedAt, &status, &verifierID, &verifierName, &verifierContact, &verifierRole,
		&verifiedAt, &r.Reason, &correctionOf,
	); err != nil {
		return nil, err
	}

	r.ID = models.RecordID(id)
	r.CenterID = models.CenterID(centerID)
	r.Submitter.Role = models.Role(role)
	r.Status = models.Status(status)
	r.SubmittedAt = r.SubmittedAt.UTC()
	if err := json.Unmarshal(breakdown, &r.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	if verifierID.Valid {
		r.Verifier = &models.Identity{
			ID:      verifierID.String,
			Name:    verifierName.String,
			Contact: verifierContact.String,
			Role:    models.Role(verifierRole.String),
		}
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		r.VerifiedAt = &t
	}
	if correctionOf.Valid {
		prior := models.RecordID(correctionOf.UUID)
		r.CorrectionOf = &prior
	}
	return &r, nil
}
