package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"climate_bridge/internal/models"
)

func newMockUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewUserRepository(db), mock
}

func userRows(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "vendor_email", "vendor_password"}).
		AddRow(u.ID, u.Username, u.PasswordHash, u.VendorEmail, u.VendorPassword)
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs("alice", "hash", "a@example.com", "vp").
		WillReturnResult(sqlmock.NewResult(5, 1))

	id, err := repo.Create(models.User{
		Username:       "alice",
		PasswordHash:   "hash",
		VendorEmail:    "a@example.com",
		VendorPassword: "vp",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 5 {
		t.Fatalf("expected id 5, got %d", id)
	}
}

func TestUserRepository_CreateError(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs("alice", "hash", "a@example.com", "vp").
		WillReturnError(errors.New("constraint failed"))

	if _, err := repo.Create(models.User{
		Username:       "alice",
		PasswordHash:   "hash",
		VendorEmail:    "a@example.com",
		VendorPassword: "vp",
	}); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	want := models.User{ID: 3, Username: "alice", PasswordHash: "hash", VendorEmail: "a@example.com", VendorPassword: "vp"}

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
		WithArgs("alice").
		WillReturnRows(userRows(want))

	got, err := repo.GetByUsername("alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || *got != want {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUserRepository_GetByUsernameNotFound(t *testing.T) {
	repo, mock := newMockUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "vendor_email", "vendor_password"}))

	got, err := repo.GetByUsername("ghost")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil user for a miss, got %+v", got)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	want := models.User{ID: 7, Username: "bob", PasswordHash: "hash", VendorEmail: "b@example.com", VendorPassword: "vp"}

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByIDSQL)).
		WithArgs(7).
		WillReturnRows(userRows(want))

	got, err := repo.GetByID(7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.VendorEmail != "b@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}
