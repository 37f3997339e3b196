package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Store) CreateRole(ctx context.Context, r *domain.Role) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO roles (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Description, formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
		return err
	})
}

func (s *Store) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	return s.scanRole(s.db.QueryRowContext(ctx, roleSelect+` WHERE id = ? AND deleted_at IS NULL`, id))
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return s.scanRole(s.db.QueryRowContext(ctx, roleSelect+` WHERE name = ? AND deleted_at IS NULL`, name))
}

func (s *Store) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := s.db.QueryContext(ctx, roleSelect+` WHERE deleted_at IS NULL ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		var r domain.Role
		var createdAt, updatedAt string
		var deletedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if r.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

const roleSelect = `SELECT id, name, description, created_at, updated_at, deleted_at FROM roles`

func (s *Store) scanRole(row *sql.Row) (*domain.Role, error) {
	var r domain.Role
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &createdAt, &updatedAt, &deletedAt); err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, resource_type, description FROM permissions ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.ResourceType, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*domain.Permission, error) {
	var p domain.Permission
	err := s.db.QueryRowContext(ctx, `SELECT id, name, resource_type, description FROM permissions WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.ResourceType, &p.Description)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return withRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, roleID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`, roleID, pid); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *Store) RolePermissionNames(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ?`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *Store) AssignUserRole(ctx context.Context, userID, roleID string) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID)
		return err
	})
}

func (s *Store) UserRoleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role_id FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// EffectivePermissions returns the union of permission names across every
// role the user holds; a deactivated account has none. Computed per call;
// callers may cache per-request.
func (s *Store) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = ? AND u.is_active = 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
