package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Role is a closed set; capability checks compare against these values
// instead of boolean flags on the user row.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleMiddleman Role = "middleman"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleMiddleman:
		return true
	}
	return false
}

var ErrNotFound = errors.New("user not found")

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repo struct{ DB DBPool }

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT id, username, email, phone, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// ProfilePatch carries the optional fields of a profile update. Role is
// deliberately absent; it is never self-service.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// UpdateProfile overwrites only the supplied fields. Email and phone feed
// notification recipient resolution, so stale values clear the moment the
// row commits.
func (r *Repo) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		UPDATE users
		SET username = COALESCE($2, username),
		    email    = COALESCE($3, email),
		    phone    = COALESCE($4, phone)
		WHERE id=$1
		RETURNING id, username, email, phone, role`,
		id, patch.Username, patch.Email, patch.Phone).
		Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repo) GetMany(ctx context.Context, ids []string) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, username, email, phone, role FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountByRole feeds the admin analytics view.
func (r *Repo) CountByRole(ctx context.Context) (map[Role]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Role]int{}
	for rows.Next() {
		var role Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}
