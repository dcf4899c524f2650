package db

import (
	"database/sql"
	"fmt"

	"github.com/pagemark/later/models"
)

// SaveUser inserts or updates a user
func (db *DB) SaveUser(user *models.User) error {
	query := `
		INSERT INTO later_users (id, first_name, last_name, email, state, date_of_birth, registration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			state = excluded.state,
			date_of_birth = excluded.date_of_birth
	`

	_, err := db.conn.Exec(
		query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		string(user.State),
		user.DateOfBirth,
		user.RegistrationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID. Returns nil when no user exists.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	var (
		user        models.User
		state       string
		dateOfBirth sql.NullTime
	)

	query := "SELECT id, first_name, last_name, email, state, date_of_birth, registration_date FROM later_users WHERE id = $1"
	err := db.conn.QueryRow(query, id).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&state,
		&dateOfBirth,
		&user.RegistrationDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.State = models.UserState(state)
	if dateOfBirth.Valid {
		user.DateOfBirth = &dateOfBirth.Time
	}

	return &user, nil
}

// ListUsers returns all users ordered by registration date
func (db *DB) ListUsers() ([]*models.User, error) {
	query := "SELECT id, first_name, last_name, email, state, date_of_birth, registration_date FROM later_users ORDER BY registration_date"

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var results []*models.User
	for rows.Next() {
		var (
			user        models.User
			state       string
			dateOfBirth sql.NullTime
		)

		if err := rows.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &state, &dateOfBirth, &user.RegistrationDate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		user.State = models.UserState(state)
		if dateOfBirth.Valid {
			user.DateOfBirth = &dateOfBirth.Time
		}

		results = append(results, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}
