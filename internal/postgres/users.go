package postgres

import "context"

// UpsertUser registers email with role, or updates the role of an existing
// user, and returns the user id.
func UpsertUser(ctx context.Context, q Querier, email, role string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO users(email, role) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role
		RETURNING id`, email, role).Scan(&id)
	return id, err
}
