package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var ErrNoMiddleman = errors.New("no middleman available")

// SelectionPolicy picks the middleman to assign to a freshly approved
// order. Strategies run inside the approval transaction, so they query
// through the supplied tx.
type SelectionPolicy interface {
	SelectMiddleman(ctx context.Context, tx pgx.Tx) (string, error)
}

// FirstAvailable takes the first user carrying the middleman role. No
// load distribution; kept for compatibility with the legacy behavior.
type FirstAvailable struct{}

func (FirstAvailable) SelectMiddleman(ctx context.Context, tx pgx.Tx) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT id FROM users WHERE role=$1 ORDER BY id LIMIT 1`, RoleMiddleman).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoMiddleman
		}
		return "", err
	}
	return id, nil
}

// LeastLoaded picks the middleman with the fewest open (not delivered,
// not cancelled) assigned orders. Default policy.
type LeastLoaded struct{}

func (LeastLoaded) SelectMiddleman(ctx context.Context, tx pgx.Tx) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT u.id
		FROM users u
		LEFT JOIN orders o
		  ON o.middleman_id = u.id AND o.status NOT IN ('delivered','cancelled')
		WHERE u.role=$1
		GROUP BY u.id
		ORDER BY COUNT(o.id), u.id
		LIMIT 1`, RoleMiddleman).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoMiddleman
		}
		return "", err
	}
	return id, nil
}
