package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// bytesPerGB converts the licence's quota, configured in gigabytes, to bytes.
// Binary gigabytes (1024^3), matching the stored ledger values.
const bytesPerGB = int64(1) << 30

const documentColumns = `id, tenant_id, declaration_id, name, COALESCE(extension, ''), size, created_at, updated_at`

// lockLedger creates the tenant's ledger entry if absent and takes a row-level
// exclusive lock on it, returning the current byte count. The lock serializes
// all document writes for the tenant until the surrounding transaction ends.
func lockLedger(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (int64, error) {
	_, err := tx.Exec(ctx,
		`INSERT INTO storage_usage (tenant_id, bytes_used, updated_at)
		 VALUES ($1, 0, NOW()) ON CONFLICT (tenant_id) DO NOTHING`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("ensure storage usage row: %w", err)
	}

	var used int64
	err = tx.QueryRow(ctx,
		`SELECT bytes_used FROM storage_usage WHERE tenant_id = $1 FOR UPDATE`, tenantID,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("lock storage usage row: %w", err)
	}
	return used, nil
}

// ceilingBytes returns the tenant's storage ceiling from its licence.
func ceilingBytes(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (int64, error) {
	var quotaGB int
	err := tx.QueryRow(ctx,
		`SELECT l.storage_gb FROM tenants tn JOIN licences l ON l.id = tn.licence_id
		 WHERE tn.id = $1`, tenantID,
	).Scan(&quotaGB)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get storage ceiling: %w", err)
	}
	return int64(quotaGB) * bytesPerGB, nil
}

// applyUsage adds delta (negative on delete/shrink) to the locked ledger entry.
func applyUsage(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, delta int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE storage_usage SET bytes_used = bytes_used + $2, updated_at = NOW()
		 WHERE tenant_id = $1`, tenantID, delta)
	if err != nil {
		return fmt.Errorf("apply storage delta: %w", err)
	}
	return nil
}

// CreateDocument inserts a document row and charges its size to the owning
// tenant's ledger in a single transaction. Fails with *StorageLimitError when
// the charge would push usage past the licensed ceiling; on any failure
// neither the row nor the ledger is touched.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document, payload []byte) error {
	doc.Size = int64(len(payload))

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		used, err := lockLedger(ctx, tx, doc.TenantID)
		if err != nil {
			return err
		}
		ceiling, err := ceilingBytes(ctx, tx, doc.TenantID)
		if err != nil {
			return err
		}

		if used+doc.Size > ceiling {
			return &StorageLimitError{
				AttemptedBytes: doc.Size,
				BytesUsed:      used,
				CeilingBytes:   ceiling,
				ShortfallBytes: used + doc.Size - ceiling,
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO documents (id, tenant_id, declaration_id, name, extension, size, payload, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			doc.ID, doc.TenantID, doc.DeclarationID, doc.Name, doc.Extension, doc.Size, payload,
			doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("insert document: %w", err)
		}

		return applyUsage(ctx, tx, doc.TenantID, doc.Size)
	})
	if err != nil {
		var limitErr *StorageLimitError
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateKey) || errors.As(err, &limitErr) {
			return err
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, error) {
	cond, scopeArgs := scope.Predicate(authz.Documents, 2)
	args := append([]any{id}, scopeArgs...)

	var d models.Document
	err := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND `+cond, args...,
	).Scan(&d.ID, &d.TenantID, &d.DeclarationID, &d.Name, &d.Extension, &d.Size, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, []byte, error) {
	cond, scopeArgs := scope.Predicate(authz.Documents, 2)
	args := append([]any{id}, scopeArgs...)

	var d models.Document
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+`, payload FROM documents WHERE id = $1 AND `+cond, args...,
	).Scan(&d.ID, &d.TenantID, &d.DeclarationID, &d.Name, &d.Extension, &d.Size,
		&d.CreatedAt, &d.UpdatedAt, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get document payload: %w", err)
	}
	return &d, payload, nil
}

func (s *PostgresStore) GetDocumentsByIDs(ctx context.Context, scope authz.Scope, ids []uuid.UUID) ([]*models.Document, error) {
	if len(ids) == 0 {
		return []*models.Document{}, nil
	}

	cond, scopeArgs := scope.Predicate(authz.Documents, 2)
	args := append([]any{ids}, scopeArgs...)

	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ANY($1) AND `+cond+` ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get documents by ids: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, scope authz.Scope, filter DocumentFilter) ([]*models.Document, int, error) {
	cond, args := scope.Predicate(authz.Documents, 1)
	conditions := []string{cond}
	argIdx := len(args) + 1

	if filter.DeclarationID != nil {
		conditions = append(conditions, fmt.Sprintf("declaration_id = $%d", argIdx))
		args = append(args, *filter.DeclarationID)
		argIdx++
	}
	if filter.DeclarationNumber != "" {
		conditions = append(conditions,
			fmt.Sprintf("declaration_id IN (SELECT id FROM declarations WHERE number = $%d)", argIdx))
		args = append(args, filter.DeclarationNumber)
		argIdx++
	}
	if filter.Extension != "" {
		conditions = append(conditions, fmt.Sprintf("extension = $%d", argIdx))
		args = append(args, filter.Extension)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM documents WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit, offset := normalizePage(filter.Limit, filter.Page)
	dataQuery := fmt.Sprintf(
		`SELECT `+documentColumns+` FROM documents WHERE %s ORDER BY created_at LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// RenameDocument changes non-size metadata only; the ledger is untouched.
func (s *PostgresStore) RenameDocument(ctx context.Context, scope authz.Scope, id uuid.UUID, name string) (*models.Document, error) {
	cond, scopeArgs := scope.Predicate(authz.Documents, 3)
	args := append([]any{id, name}, scopeArgs...)

	var d models.Document
	err := s.pool.QueryRow(ctx,
		`UPDATE documents SET name = $2, updated_at = NOW() WHERE id = $1 AND `+cond+
			` RETURNING `+documentColumns, args...,
	).Scan(&d.ID, &d.TenantID, &d.DeclarationID, &d.Name, &d.Extension, &d.Size, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rename document: %w", err)
	}
	return &d, nil
}

// ReplaceDocumentPayload swaps a document's payload, resizing it and moving
// the size difference through the tenant's ledger in the same transaction.
// The ceiling check applies only to growth; a shrinking update always passes.
func (s *PostgresStore) ReplaceDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID, name, extension string, payload []byte) (*models.Document, error) {
	newSize := int64(len(payload))

	var d models.Document
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cond, scopeArgs := scope.Predicate(authz.Documents, 2)
		args := append([]any{id}, scopeArgs...)

		var tenantID uuid.UUID
		var oldSize int64
		err := tx.QueryRow(ctx,
			`SELECT tenant_id, size FROM documents WHERE id = $1 AND `+cond+` FOR UPDATE OF documents`,
			args...,
		).Scan(&tenantID, &oldSize)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock document row: %w", err)
		}

		used, err := lockLedger(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		delta := newSize - oldSize
		if delta > 0 {
			ceiling, err := ceilingBytes(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			if used+delta > ceiling {
				return &StorageLimitError{
					Update:         true,
					AttemptedBytes: newSize,
					BytesUsed:      used,
					CeilingBytes:   ceiling,
					ShortfallBytes: used + delta - ceiling,
				}
			}
		}

		row := tx.QueryRow(ctx,
			`UPDATE documents SET payload = $2, size = $3, extension = $4,
			        name = CASE WHEN $5 = '' THEN name ELSE $5 END, updated_at = NOW()
			 WHERE id = $1 RETURNING `+documentColumns,
			id, payload, newSize, extension, name)
		if err := row.Scan(&d.ID, &d.TenantID, &d.DeclarationID, &d.Name, &d.Extension, &d.Size,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		return applyUsage(ctx, tx, tenantID, delta)
	})
	if err != nil {
		var limitErr *StorageLimitError
		if errors.Is(err, ErrNotFound) || errors.As(err, &limitErr) {
			return nil, err
		}
		return nil, fmt.Errorf("replace document payload: %w", err)
	}
	return &d, nil
}

// DeleteDocument removes the row and refunds its size to the ledger
// atomically. A negative delta needs no ceiling check.
func (s *PostgresStore) DeleteDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cond, scopeArgs := scope.Predicate(authz.Documents, 2)
		args := append([]any{id}, scopeArgs...)

		var tenantID uuid.UUID
		var size int64
		err := tx.QueryRow(ctx,
			`SELECT tenant_id, size FROM documents WHERE id = $1 AND `+cond+` FOR UPDATE OF documents`,
			args...,
		).Scan(&tenantID, &size)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock document row: %w", err)
		}

		if _, err := lockLedger(ctx, tx, tenantID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}

		return applyUsage(ctx, tx, tenantID, -size)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// --- Quota ledger ---

// GetStorageUsage returns the tenant's ledger entry, creating a zeroed one on
// first reference. The insert-if-absent makes concurrent first access safe.
func (s *PostgresStore) GetStorageUsage(ctx context.Context, tenantID uuid.UUID) (*models.StorageUsage, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO storage_usage (tenant_id, bytes_used, updated_at)
		 VALUES ($1, 0, NOW()) ON CONFLICT (tenant_id) DO NOTHING`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ensure storage usage row: %w", err)
	}

	var u models.StorageUsage
	err = s.pool.QueryRow(ctx,
		`SELECT tenant_id, bytes_used, updated_at FROM storage_usage WHERE tenant_id = $1`, tenantID,
	).Scan(&u.TenantID, &u.BytesUsed, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get storage usage: %w", err)
	}
	return &u, nil
}

// RecomputeStorageUsage resets the ledger to the exact sum of current document
// sizes and returns the total. This is the self-healing path for drift.
func (s *PostgresStore) RecomputeStorageUsage(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		used, err := lockLedger(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM documents WHERE tenant_id = $1`, tenantID,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("sum document sizes: %w", err)
		}

		if total == used {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE storage_usage SET bytes_used = $2, updated_at = NOW() WHERE tenant_id = $1`,
			tenantID, total)
		if err != nil {
			return fmt.Errorf("reset storage usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recompute storage usage: %w", err)
	}
	return total, nil
}

// StorageReport builds the tenant's storage aggregate, recomputing bytes-used
// from document rows first so the report is correct even after ledger drift.
func (s *PostgresStore) StorageReport(ctx context.Context, tenantID uuid.UUID) (*models.StorageReport, error) {
	var report models.StorageReport
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var quotaGB int
		err := tx.QueryRow(ctx,
			`SELECT tn.name, l.storage_gb FROM tenants tn JOIN licences l ON l.id = tn.licence_id
			 WHERE tn.id = $1`, tenantID,
		).Scan(&report.Tenant, &quotaGB)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get tenant licence: %w", err)
		}

		used, err := lockLedger(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		var total int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM documents WHERE tenant_id = $1`, tenantID,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("sum document sizes: %w", err)
		}
		if total != used {
			_, err = tx.Exec(ctx,
				`UPDATE storage_usage SET bytes_used = $2, updated_at = NOW() WHERE tenant_id = $1`,
				tenantID, total)
			if err != nil {
				return fmt.Errorf("reset storage usage: %w", err)
			}
		}

		ceiling := int64(quotaGB) * bytesPerGB
		report.QuotaGB = quotaGB
		report.BytesUsed = total
		report.UsedGB = float64(total) / float64(bytesPerGB)
		report.BytesAvailable = max(ceiling-total, 0)
		if ceiling > 0 {
			report.PercentUsed = math.Round(float64(total)/float64(ceiling)*100*100) / 100
		}

		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE tenant_id = $1`, tenantID).
			Scan(&report.DocumentCount)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM declarations WHERE tenant_id = $1`, tenantID).
			Scan(&report.DeclarationCount)
		if err != nil {
			return fmt.Errorf("count declarations: %w", err)
		}
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).
			Scan(&report.UserCount)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("storage report: %w", err)
	}
	return &report, nil
}

func scanDocuments(rows pgx.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.TenantID, &d.DeclarationID, &d.Name, &d.Extension, &d.Size,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
