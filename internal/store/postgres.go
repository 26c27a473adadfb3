package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Licences ---

func (s *PostgresStore) CreateLicence(ctx context.Context, l *models.Licence) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO licences (id, name, description, storage_gb, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Name, l.Description, l.StorageGB, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create licence: %w", err)
	}
	return nil
}

// --- Tenants ---

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, licence_id, name, taxpayer_id, active, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.LicenceID, t.Name, t.TaxpayerID, t.Active, t.Verified, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, licence_id, name, taxpayer_id, active, verified, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.LicenceID, &t.Name, &t.TaxpayerID, &t.Active, &t.Verified, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// --- Users ---

const userColumns = `id, tenant_id, email, password_hash, roles, superuser, is_importer, COALESCE(taxpayer_id, ''), created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	var taxpayerID *string
	if u.TaxpayerID != "" {
		taxpayerID = &u.TaxpayerID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, password_hash, roles, superuser, is_importer, taxpayer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.Roles, u.Superuser, u.IsImporter, taxpayerID,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Roles, &u.Superuser,
		&u.IsImporter, &u.TaxpayerID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- Declarations ---

func (s *PostgresStore) CreateDeclaration(ctx context.Context, d *models.Declaration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO declarations (id, tenant_id, number, taxpayer_id, taxpayer_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.TenantID, d.Number, d.TaxpayerID, d.TaxpayerName, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create declaration: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeclarations(ctx context.Context, scope authz.Scope, filter DeclarationFilter) ([]*models.Declaration, int, error) {
	cond, args := scope.Predicate(authz.Declarations, 1)
	conditions := []string{cond}
	argIdx := len(args) + 1

	if filter.Number != "" {
		conditions = append(conditions, fmt.Sprintf("number = $%d", argIdx))
		args = append(args, filter.Number)
		argIdx++
	}
	if filter.TaxpayerID != "" {
		conditions = append(conditions, fmt.Sprintf("taxpayer_id = $%d", argIdx))
		args = append(args, filter.TaxpayerID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM declarations WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count declarations: %w", err)
	}

	limit, offset := normalizePage(filter.Limit, filter.Page)
	dataQuery := fmt.Sprintf(
		`SELECT id, tenant_id, number, taxpayer_id, taxpayer_name, created_at, updated_at
		 FROM declarations WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list declarations: %w", err)
	}
	defer rows.Close()

	var decls []*models.Declaration
	for rows.Next() {
		var d models.Declaration
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Number, &d.TaxpayerID, &d.TaxpayerName,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, &d)
	}
	return decls, total, rows.Err()
}

// normalizePage clamps pagination parameters and returns (limit, offset).
func normalizePage(limit, page int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
