package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"climate_bridge/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure implementation of Users interface at compile time.
var _ Users = (*UserRepository)(nil)

const (
	insertUserSQL = `INSERT INTO users (username, password_hash, vendor_email, vendor_password) VALUES (?, ?, ?, ?)`

	selectUserByUsernameSQL = `SELECT id, username, password_hash, vendor_email, vendor_password FROM users WHERE username = ?`
	selectUserByIDSQL       = `SELECT id, username, password_hash, vendor_email, vendor_password FROM users WHERE id = ?`
)

// Create inserts a new user and returns its ID.
func (r *UserRepository) Create(u models.User) (int, error) {
	res, err := r.db.Exec(insertUserSQL, u.Username, u.PasswordHash, u.VendorEmail, u.VendorPassword)
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for user %q: %w", u.Username, err)
	}
	return int(lastID), nil
}

// GetByUsername fetches a user by username. Returns (nil, nil) if not found.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(selectUserByUsernameSQL, username), username)
}

// GetByID fetches a user by id. Returns (nil, nil) if not found.
func (r *UserRepository) GetByID(id int) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(selectUserByIDSQL, id), fmt.Sprintf("id=%d", id))
}

func (r *UserRepository) scanUser(row *sql.Row, ref any) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.VendorEmail, &u.VendorPassword)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %v: %w", ref, err)
	}
	return &u, nil
}
