package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// AuditRepository implements audit.EntryRepository on PostgreSQL.
// The audit_entries table is insert-only; no update or delete statements
// exist in this package. Archival past the retention window is an
// external process.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new PostgreSQL audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertEntry = `
	INSERT INTO audit_entries (
		id, actor_id, action, resource_type, resource_id, timestamp,
		outcome, error_message, risk_level, compliance_flags,
		source_ip, correlation_id, ref_id
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

// Store persists a single audit entry
func (r *AuditRepository) Store(ctx context.Context, entry *audit.Entry) error {
	flagsJSON, err := json.Marshal(entry.Flags)
	if err != nil {
		return errors.NewInternalError("failed to marshal compliance flags").WithCause(err)
	}

	_, err = r.db.Exec(ctx, insertEntry,
		entry.ID,
		nullableString(entry.ActorID),
		entry.Action.String(),
		entry.ResourceType.String(),
		entry.ResourceID,
		entry.Timestamp,
		entry.Outcome.String(),
		nullableString(entry.ErrorMessage),
		entry.RiskLevel.String(),
		flagsJSON,
		nullableString(entry.SourceIP),
		entry.CorrelationID,
		entry.RefID,
	)
	if err != nil {
		return errors.NewStorageError("STORAGE_WRITE_FAILED",
			"failed to store audit entry").WithCause(err)
	}

	return nil
}

// StoreBatch persists multiple entries atomically
func (r *AuditRepository) StoreBatch(ctx context.Context, entries []*audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewStorageError("STORAGE_WRITE_FAILED",
			"failed to begin transaction").WithCause(err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, entry := range entries {
		flagsJSON, err := json.Marshal(entry.Flags)
		if err != nil {
			return errors.NewInternalError("failed to marshal compliance flags").WithCause(err)
		}

		batch.Queue(insertEntry,
			entry.ID,
			nullableString(entry.ActorID),
			entry.Action.String(),
			entry.ResourceType.String(),
			entry.ResourceID,
			entry.Timestamp,
			entry.Outcome.String(),
			nullableString(entry.ErrorMessage),
			entry.RiskLevel.String(),
			flagsJSON,
			nullableString(entry.SourceIP),
			entry.CorrelationID,
			entry.RefID,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.NewStorageError("STORAGE_WRITE_FAILED",
			"failed to store audit batch").WithCause(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewStorageError("STORAGE_WRITE_FAILED",
			"failed to commit audit batch").WithCause(err)
	}

	return nil
}

const selectColumns = `
	id, actor_id, action, resource_type, resource_id, timestamp,
	outcome, error_message, risk_level, compliance_flags,
	source_ip, correlation_id, ref_id`

// GetByID retrieves an entry by its unique identifier
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_entries WHERE id = $1", selectColumns)

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrEntryNotFound
		}
		return nil, errors.NewStorageError("STORAGE_READ_FAILED",
			"failed to load audit entry").WithCause(err)
	}

	return entry, nil
}

// Query retrieves entries matching the filter, ordered by timestamp
// descending
func (r *AuditRepository) Query(ctx context.Context, filter audit.EntryFilter) ([]*audit.Entry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	where, args := buildPredicates(filter)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM audit_entries", selectColumns)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY timestamp DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.NewStorageError("STORAGE_READ_FAILED",
			"audit query failed").WithCause(err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewStorageError("STORAGE_READ_FAILED",
				"failed to scan audit entry").WithCause(err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("STORAGE_READ_FAILED",
			"audit query iteration failed").WithCause(err)
	}

	return entries, nil
}

// Count returns the number of entries matching the filter
func (r *AuditRepository) Count(ctx context.Context, filter audit.EntryFilter) (int64, error) {
	where, args := buildPredicates(filter)

	query := "SELECT COUNT(*) FROM audit_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.NewStorageError("STORAGE_READ_FAILED",
			"audit count failed").WithCause(err)
	}

	return count, nil
}

// CountByActorOutcome counts entries for an actor with the given outcome
// since the given time. Used by the risk scoring path.
func (r *AuditRepository) CountByActorOutcome(ctx context.Context, actorID string, outcome audit.Outcome, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM audit_entries
		WHERE actor_id = $1 AND outcome = $2 AND timestamp >= $3`

	var count int
	if err := r.db.QueryRow(ctx, query, actorID, outcome.String(), since).Scan(&count); err != nil {
		return 0, errors.NewStorageError("STORAGE_READ_FAILED",
			"actor failure count failed").WithCause(err)
	}

	return count, nil
}

// buildPredicates translates the entry filter into SQL predicates.
// SensitiveOnly is resolved by the recorder, never here.
func buildPredicates(filter audit.EntryFilter) ([]string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	arg := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter.ActorID != "" {
		where = append(where, fmt.Sprintf("actor_id = $%d", arg(filter.ActorID)))
	}

	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = a.String()
		}
		where = append(where, fmt.Sprintf("action = ANY($%d)", arg(actions)))
	}

	if filter.ResourceType != "" {
		where = append(where, fmt.Sprintf("resource_type = $%d", arg(filter.ResourceType.String())))
	}

	if len(filter.RiskLevels) > 0 {
		levels := make([]string, len(filter.RiskLevels))
		for i, rl := range filter.RiskLevels {
			levels[i] = rl.String()
		}
		where = append(where, fmt.Sprintf("risk_level = ANY($%d)", arg(levels)))
	}

	if !filter.Range.From.IsZero() {
		where = append(where, fmt.Sprintf("timestamp >= $%d", arg(filter.Range.From)))
	}

	if !filter.Range.To.IsZero() {
		where = append(where, fmt.Sprintf("timestamp <= $%d", arg(filter.Range.To)))
	}

	if filter.CorrelationID != uuid.Nil {
		where = append(where, fmt.Sprintf("correlation_id = $%d", arg(filter.CorrelationID)))
	}

	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*audit.Entry, error) {
	var (
		entry        audit.Entry
		actorID      *string
		action       string
		resourceType string
		outcome      string
		errorMessage *string
		riskLevel    string
		flagsJSON    []byte
		sourceIP     *string
	)

	err := row.Scan(
		&entry.ID,
		&actorID,
		&action,
		&resourceType,
		&entry.ResourceID,
		&entry.Timestamp,
		&outcome,
		&errorMessage,
		&riskLevel,
		&flagsJSON,
		&sourceIP,
		&entry.CorrelationID,
		&entry.RefID,
	)
	if err != nil {
		return nil, err
	}

	entry.Action = audit.Action(action)
	entry.ResourceType = audit.ResourceType(resourceType)
	entry.Outcome = audit.Outcome(outcome)
	entry.RiskLevel = audit.RiskLevel(riskLevel)
	entry.Timestamp = entry.Timestamp.UTC()

	if actorID != nil {
		entry.ActorID = *actorID
	}
	if errorMessage != nil {
		entry.ErrorMessage = *errorMessage
	}
	if sourceIP != nil {
		entry.SourceIP = *sourceIP
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &entry.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compliance flags: %w", err)
		}
	}

	return &entry, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ audit.EntryRepository = (*AuditRepository)(nil)
