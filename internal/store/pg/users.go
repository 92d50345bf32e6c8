package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"authcore.io/internal/identity"
)

type userStore struct {
	db *sql.DB
}

const userColumns = `id, email, password_hash, first_name, last_name, email_verified,
	coalesce(reset_token, ''), reset_token_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		u       identity.User
		resetAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.EmailVerified, &u.ResetToken, &resetAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if resetAt.Valid {
		u.ResetTokenExpiresAt = resetAt.Time
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name)
		values ($1, $2, $3, $4, $5)
		returning email_verified, created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName)
	if err := row.Scan(&u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return identity.ErrEmailInUse
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userStore) List(ctx context.Context, page, limit int) ([]*identity.User, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		return nil, total, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		order by created_at desc
		limit $1 offset $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *userStore) Update(ctx context.Context, id string, upd identity.UserUpdate) (*identity.User, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.FirstName != nil {
		sets = append(sets, fmt.Sprintf("first_name = $%d", idx))
		args = append(args, *upd.FirstName)
		idx++
	}
	if upd.LastName != nil {
		sets = append(sets, fmt.Sprintf("last_name = $%d", idx))
		args = append(args, *upd.LastName)
		idx++
	}
	if upd.EmailVerified != nil {
		sets = append(sets, fmt.Sprintf("email_verified = $%d", idx))
		args = append(args, *upd.EmailVerified)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, identity.ErrEmailInUse
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, identity.ErrUserNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set password_hash = $1, updated_at = now() where id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrUserNotFound)
}

func (s *userStore) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set reset_token = $1, reset_token_expires_at = $2, updated_at = now()
		where id = $3
	`, token, expiresAt, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrUserNotFound)
}

// ResetPassword applies the new hash and clears the pending token in one
// statement so a replayed token can never race the update.
func (s *userStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set password_hash = $1, reset_token = null, reset_token_expires_at = null, updated_at = now()
		where id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrUserNotFound)
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res, identity.ErrUserNotFound)
}

func (s *userStore) AssignRoles(ctx context.Context, userID string, roleIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from users where id = $1`, userID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.ErrUserNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, userID); err != nil {
		return err
	}

	for _, roleID := range roleIDs {
		if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: role %d", identity.ErrRoleNotFound, roleID)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_id)
			values ($1, $2)
		`, userID, roleID); err != nil {
			// The existence check can race a concurrent delete.
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return fmt.Errorf("%w: role %d", identity.ErrRoleNotFound, roleID)
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *userStore) RolesOf(ctx context.Context, userID string) ([]*identity.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, coalesce(r.description, ''), r.created_at, r.updated_at
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
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

func (s *userStore) PermissionsOf(ctx context.Context, userID string) ([]*identity.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct p.id, p.name, coalesce(p.description, ''), p.created_at, p.updated_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		join user_roles ur on ur.role_id = rp.role_id
		where ur.user_id = $1
		order by p.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func affectedOrNotFound(res sql.Result, notFound error) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return notFound
	}
	return nil
}
