package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"authcore.io/internal/identity"
)

type roleStore struct {
	db *sql.DB
}

func (s *roleStore) Create(ctx context.Context, r *identity.Role) error {
	var desc sql.NullString
	row := s.db.QueryRowContext(ctx, `
		insert into roles (name, description)
		values ($1, $2)
		returning id, name, description, created_at, updated_at
	`, r.Name, nullIfEmpty(r.Description))
	if err := row.Scan(&r.ID, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return identity.ErrAlreadyExists
		}
		return err
	}
	if desc.Valid {
		r.Description = desc.String
	}
	return nil
}

func (s *roleStore) Find(ctx context.Context, id int64) (*identity.Role, error) {
	return scanRoleRow(s.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from roles where id = $1
	`, id))
}

func (s *roleStore) FindByName(ctx context.Context, name string) (*identity.Role, error) {
	return scanRoleRow(s.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from roles where name = $1
	`, name))
}

func scanRoleRow(row rowScanner) (*identity.Role, error) {
	var r identity.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *roleStore) List(ctx context.Context) ([]*identity.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from roles
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*identity.Role
	for rows.Next() {
		var r identity.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *roleStore) Update(ctx context.Context, id int64, upd identity.RoleUpdate) (*identity.Role, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		if *upd.Description == "" {
			sets = append(sets, "description = NULL")
		} else {
			sets = append(sets, fmt.Sprintf("description = $%d", idx))
			args = append(args, *upd.Description)
			idx++
		}
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update roles set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, identity.ErrAlreadyExists
			}
			return nil, err
		}
		if err := affectedOrNotFound(res, identity.ErrRoleNotFound); err != nil {
			return nil, err
		}
	}
	return s.Find(ctx, id)
}

func (s *roleStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrRoleNotFound)
}

func (s *roleStore) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.ErrRoleNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}

	for _, permID := range permissionIDs {
		if err := tx.QueryRowContext(ctx, `select 1 from permissions where id = $1`, permID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: permission %d", identity.ErrPermissionNotFound, permID)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
		`, roleID, permID); err != nil {
			// The existence check can race a concurrent delete.
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return fmt.Errorf("%w: permission %d", identity.ErrPermissionNotFound, permID)
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *roleStore) Permissions(ctx context.Context, roleID int64) ([]*identity.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, coalesce(p.description, ''), p.created_at, p.updated_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPermissions(rows)
}

type permissionStore struct {
	db *sql.DB
}

func (s *permissionStore) Create(ctx context.Context, p *identity.Permission) error {
	var desc sql.NullString
	row := s.db.QueryRowContext(ctx, `
		insert into permissions (name, description)
		values ($1, $2)
		returning id, name, description, created_at, updated_at
	`, p.Name, nullIfEmpty(p.Description))
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return identity.ErrAlreadyExists
		}
		return err
	}
	if desc.Valid {
		p.Description = desc.String
	}
	return nil
}

func (s *permissionStore) Find(ctx context.Context, id int64) (*identity.Permission, error) {
	return scanPermissionRow(s.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from permissions where id = $1
	`, id))
}

func (s *permissionStore) FindByName(ctx context.Context, name string) (*identity.Permission, error) {
	return scanPermissionRow(s.db.QueryRowContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from permissions where name = $1
	`, name))
}

func scanPermissionRow(row rowScanner) (*identity.Permission, error) {
	var p identity.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrPermissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *permissionStore) List(ctx context.Context) ([]*identity.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, coalesce(description, ''), created_at, updated_at
		from permissions
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPermissions(rows)
}

func (s *permissionStore) Update(ctx context.Context, id int64, upd identity.PermissionUpdate) (*identity.Permission, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Description != nil {
		if *upd.Description == "" {
			sets = append(sets, "description = NULL")
		} else {
			sets = append(sets, fmt.Sprintf("description = $%d", idx))
			args = append(args, *upd.Description)
			idx++
		}
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update permissions set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, identity.ErrAlreadyExists
			}
			return nil, err
		}
		if err := affectedOrNotFound(res, identity.ErrPermissionNotFound); err != nil {
			return nil, err
		}
	}
	return s.Find(ctx, id)
}

func (s *permissionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from permissions where id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrPermissionNotFound)
}

// Ensure inserts any catalog entries missing from storage. Existing rows keep
// their descriptions and grants.
func (s *permissionStore) Ensure(ctx context.Context, perms []identity.Permission) error {
	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (name, description)
			values ($1, $2)
			on conflict (name) do nothing
		`, p.Name, nullIfEmpty(p.Description)); err != nil {
			return err
		}
	}
	return nil
}

func collectPermissions(rows *sql.Rows) ([]*identity.Permission, error) {
	var perms []*identity.Permission
	for rows.Next() {
		var p identity.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
