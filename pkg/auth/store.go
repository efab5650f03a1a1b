package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PrincipalStore persists principals in PostgreSQL
type PrincipalStore struct {
	db *sql.DB
}

// NewPrincipalStore creates a new principal store
func NewPrincipalStore(db *sql.DB) *PrincipalStore {
	return &PrincipalStore{db: db}
}

const principalColumns = `id, username, first_name, last_name, email, is_active, is_staff, created_at, updated_at`

func scanPrincipal(row *sql.Row) (*Principal, error) {
	p := &Principal{}
	err := row.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Email,
		&p.IsActive, &p.IsStaff, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a principal by primary key
func (s *PrincipalStore) GetByID(ctx context.Context, id int64) (*Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	return scanPrincipal(row)
}

// GetByUsername retrieves a principal by its unique username
func (s *PrincipalStore) GetByUsername(ctx context.Context, username string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = $1`, username)
	return scanPrincipal(row)
}

// Create inserts a new principal. The unusable-password marker is set at
// the schema level: principals never get a usable password here.
func (s *PrincipalStore) Create(ctx context.Context, p *Principal) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO principals (username, first_name, last_name, email, is_active, is_staff, has_usable_password)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, created_at, updated_at
	`, p.Username, p.FirstName, p.LastName, p.Email, p.IsActive, p.IsStaff).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}
	return nil
}

// Change is a single column mutation produced by the reconciler diff
type Change struct {
	Column string
	Value  interface{}
}

// ApplyChanges persists an ordered change set in one UPDATE
func (s *PrincipalStore) ApplyChanges(ctx context.Context, id int64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(changes)+1)
	args := make([]interface{}, 0, len(changes)+1)
	for i, change := range changes {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", change.Column, i+1))
		args = append(args, change.Value)
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE principals SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(changes)+1)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update principal: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("principal %d not found", id)
	}
	return nil
}

// List returns all principals ordered by id
func (s *PrincipalStore) List(ctx context.Context) ([]*Principal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+principalColumns+` FROM principals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*Principal
	for rows.Next() {
		p := &Principal{}
		if err := rows.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Email,
			&p.IsActive, &p.IsStaff, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

// Delete removes a principal; owned inventories cascade at the schema level
func (s *PrincipalStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete principal: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
