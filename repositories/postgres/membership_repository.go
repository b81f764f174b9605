package postgres

import (
	"context"
	"fmt"

	"github.com/harborline/shipment-tracker/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// ScopesForEmail returns the customer scopes the email may view. The match
// on email is exact; a user with no memberships gets an empty slice, which
// callers must treat as "zero results", not a failure.
func (r *MembershipRepository) ScopesForEmail(ctx context.Context, email string) ([]string, error) {
	query := `
		SELECT customer_scope
		FROM memberships
		WHERE email = $1
	`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	scopes := []string{}
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		scopes = append(scopes, scope)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows: %w", err)
	}

	r.logger.Debug("resolved scopes",
		zap.String("email", email),
		zap.Int("count", len(scopes)))

	return scopes, nil
}
