package repository

import (
	"context"
	"database/sql"
	"time"

	"climate_bridge/internal/models"
	"climate_bridge/internal/repository/db"
)

// Users stores local accounts together with their vendor credentials.
type Users interface {
	Create(u models.User) (int, error)
	GetByUsername(username string) (*models.User, error)
	GetByID(id int) (*models.User, error)
}

// Events is the append-only command audit log.
type Events interface {
	Append(ctx context.Context, e models.CommandEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.CommandEvent, error)
}

type Repository struct {
	Users  Users
	Events Events
}

func NewRepository(sqlDB *sql.DB) *Repository {
	return &Repository{
		Users:  NewUserRepository(sqlDB),
		Events: NewEventSQLite(sqlDB),
	}
}

// InitDB opens the SQLite file and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
