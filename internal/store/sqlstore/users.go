package sqlstore

import (
	"context"

	"github.com/pliu/chatd/internal/models"
)

const userColumns = "u.id, u.username, u.email, u.password_hash, u.is_online, u.created_at, u.updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, u *models.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsOnline, &u.CreatedAt, &u.UpdatedAt)
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	ts := now()
	query := s.rebind("INSERT INTO users (username, email, password_hash, is_online, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.IsOnline, ts, ts).Scan(&user.ID)
	if err != nil {
		return translate(err)
	}
	user.CreatedAt, user.UpdatedAt = ts, ts
	return nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT " + userColumns + " FROM users u WHERE u.id = ?")
	if err := scanUser(s.db.QueryRowContext(ctx, query, id), &user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT " + userColumns + " FROM users u WHERE u.email = ?")
	if err := scanUser(s.db.QueryRowContext(ctx, query, email), &user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUsersByIDs returns the users that exist among ids, ordered by id.
func (s *SQLStore) GetUsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := s.rebind("SELECT " + userColumns + " FROM users u WHERE u.id IN (" + placeholders(len(ids)) + ") ORDER BY u.id")
	return s.queryUsers(ctx, s.db, query, args...)
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.queryUsers(ctx, s.db, "SELECT "+userColumns+" FROM users u ORDER BY u.id")
}

func (s *SQLStore) UpdateUser(ctx context.Context, user *models.User) error {
	ts := now()
	query := s.rebind("UPDATE users SET username = ?, email = ?, password_hash = ?, is_online = ?, updated_at = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.IsOnline, ts, user.ID)
	if err != nil {
		return translate(err)
	}
	if err := affectedOne(res); err != nil {
		return err
	}
	user.UpdatedAt = ts
	return nil
}

// DeleteUser removes the user; memberships and authored messages cascade.
func (s *SQLStore) DeleteUser(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return translate(err)
	}
	return affectedOne(res)
}

func (s *SQLStore) queryUsers(ctx context.Context, q querier, query string, args ...any) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
