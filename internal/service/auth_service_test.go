package service

import (
	"errors"
	"testing"

	"climate_bridge/internal/models"
)

// fakeUsers is an in-memory Users repository.
type fakeUsers struct {
	nextID    int
	byName    map[string]*models.User
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: make(map[string]*models.User)}
}

func (f *fakeUsers) Create(u models.User) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	u.ID = f.nextID
	f.byName[u.Username] = &u
	return u.ID, nil
}

func (f *fakeUsers) GetByUsername(username string) (*models.User, error) {
	return f.byName[username], nil
}

func (f *fakeUsers) GetByID(id int) (*models.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func validSignUp() SignUpParams {
	return SignUpParams{
		Username:       "alice",
		Password:       "secret",
		VendorEmail:    "a@example.com",
		VendorPassword: "vp",
	}
}

func TestAuthService_SignUpHashesPassword(t *testing.T) {
	users := newFakeUsers()
	s := NewAuthService(users)

	id, err := s.SignUp(validSignUp())
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	stored := users.byName["alice"]
	if stored == nil {
		t.Fatalf("user was not stored")
	}
	if stored.PasswordHash == "secret" || stored.PasswordHash == "" {
		t.Fatalf("password stored without hashing: %q", stored.PasswordHash)
	}
	if err := verifyPassword(stored.PasswordHash, "secret"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if stored.VendorEmail != "a@example.com" || stored.VendorPassword != "vp" {
		t.Fatalf("vendor credentials not stored: %+v", stored)
	}
}

func TestAuthService_SignUpRejectsMissingVendorCredentials(t *testing.T) {
	s := NewAuthService(newFakeUsers())

	p := validSignUp()
	p.VendorEmail = "  "
	if _, err := s.SignUp(p); err == nil {
		t.Fatalf("expected an error for missing vendor credentials")
	}
}

func TestAuthService_SignUpRejectsEmptyPassword(t *testing.T) {
	s := NewAuthService(newFakeUsers())

	p := validSignUp()
	p.Password = "   "
	if _, err := s.SignUp(p); err == nil {
		t.Fatalf("expected an error for an empty password")
	}
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	users := newFakeUsers()
	s := NewAuthService(users)
	if _, err := s.SignUp(validSignUp()); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	token, err := s.GenerateToken("alice", "secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := s.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if userID != 1 {
		t.Fatalf("expected user id 1, got %d", userID)
	}
}

func TestAuthService_GenerateTokenErrors(t *testing.T) {
	users := newFakeUsers()
	s := NewAuthService(users)
	if _, err := s.SignUp(validSignUp()); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := s.GenerateToken("alice", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := s.GenerateToken("ghost", "secret"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ParseTokenRejectsGarbage(t *testing.T) {
	s := NewAuthService(newFakeUsers())

	if _, err := s.ParseToken("not.a.jwt"); err == nil {
		t.Fatalf("expected an error for a malformed token")
	}
}

func TestAuthService_Credentials(t *testing.T) {
	users := newFakeUsers()
	s := NewAuthService(users)
	if _, err := s.SignUp(validSignUp()); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	creds, err := s.Credentials(1)
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if creds.Email != "a@example.com" || creds.Password != "vp" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	if _, err := s.Credentials(99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	users.byName["bare"] = &models.User{ID: 2, Username: "bare"}
	if _, err := s.Credentials(2); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}
