package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"climate_bridge/internal/models"
	"climate_bridge/internal/repository"
)

const (
	tokenTTL   = time.Hour   // 1 hour
	signingKey = "asd234asd" // TODO: move to config
)

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoCredentials   = errors.New("no vendor credentials on record for this account")
)

// AuthService handles local accounts and acts as the credential/session
// provider: it signs sessions and resolves the vendor credentials a request
// should act with.
type AuthService struct {
	users repository.Users
}

func NewAuthService(users repository.Users) *AuthService {
	return &AuthService{users: users}
}

// SignUp hashes the local password and stores the account together with its
// vendor credentials.
func (s *AuthService) SignUp(p SignUpParams) (int, error) {
	hash, err := hashPassword(p.Password)
	if err != nil {
		return 0, fmt.Errorf("invalid password: %w", err)
	}
	if strings.TrimSpace(p.VendorEmail) == "" || p.VendorPassword == "" {
		return 0, errors.New("vendor credentials are required")
	}
	return s.users.Create(models.User{
		Username:       p.Username,
		PasswordHash:   hash,
		VendorEmail:    p.VendorEmail,
		VendorPassword: p.VendorPassword,
	})
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// GenerateToken validates credentials and returns a session JWT.
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	u, err := s.users.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}

	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return issueToken(u.ID)
}

// ParseToken parses a session JWT and returns the user id.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// Credentials resolves the vendor credentials stored for a user.
func (s *AuthService) Credentials(userID int) (models.VendorCredentials, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return models.VendorCredentials{}, err
	}
	if u == nil {
		return models.VendorCredentials{}, ErrUserNotFound
	}
	if u.VendorEmail == "" || u.VendorPassword == "" {
		return models.VendorCredentials{}, ErrNoCredentials
	}
	return models.VendorCredentials{Email: u.VendorEmail, Password: u.VendorPassword}, nil
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// helper: issue a signed JWT for a user
func issueToken(userID int) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString([]byte(signingKey))
}
