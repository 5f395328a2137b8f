package service

import (
	"context"
	"encoding/json"
	"time"

	"climate_bridge/internal/broadcast"
	"climate_bridge/internal/logger"
	"climate_bridge/internal/models"
	"climate_bridge/internal/repository"
	"climate_bridge/internal/vendorapi"
)

// VendorClient is the slice of the vendor client the services depend on.
type VendorClient interface {
	ListHomes(ctx context.Context) ([]models.HomeSummary, error)
	GetDevices(ctx context.Context, homeID int) (map[int]models.DeviceSnapshot, error)
	GetDeviceStatus(ctx context.Context, homeID, deviceID int) (models.DeviceSnapshot, error)
	SetMode(ctx context.Context, deviceID int, settings models.ModeSettings) (json.RawMessage, error)
}

// ClientSource yields the vendor client for a credential set. Clients for the
// same account share one cached token.
type ClientSource func(creds models.VendorCredentials) (VendorClient, error)

// Publisher fans orchestrator outcomes out to connected subscribers.
type Publisher interface {
	Publish(event string, payload any)
}

// Climate exposes the vendor read operations.
type Climate interface {
	ListHomes(ctx context.Context, creds models.VendorCredentials) ([]models.HomeSummary, error)
	GetDevices(ctx context.Context, creds models.VendorCredentials, homeID int) (map[int]models.DeviceSnapshot, error)
	GetDeviceStatus(ctx context.Context, creds models.VendorCredentials, homeID, deviceID int) (models.DeviceSnapshot, error)
}

// Commands accepts mode-change requests and runs them through the queue.
type Commands interface {
	Enqueue(creds models.VendorCredentials, homeID, deviceID int, settings models.ModeSettings) Receipt
}

// AuditLog exposes the append-only command history with filtering access.
type AuditLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CommandEvent, error)
}

// Authorization handles local accounts and resolves their vendor credentials.
type Authorization interface {
	SignUp(p SignUpParams) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	Credentials(userID int) (models.VendorCredentials, error)
}

// Receipt acknowledges an accepted command: the job is queued, not applied.
type Receipt struct {
	JobID    string `json:"job_id"`
	Position int    `json:"position"`
}

// SignUpParams carries a new account plus the vendor credentials it uses.
type SignUpParams struct {
	Username       string
	Password       string
	VendorEmail    string
	VendorPassword string
}

// LogFilter supports audit filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "COMPLETED", "FAILED"
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Climate
	Commands
	AuditLog
	Authorization
}

// NewService wires the repository layer, vendor client pool and broadcast hub
// into concrete services.
func NewService(repos *repository.Repository, pool *vendorapi.Pool, hub *broadcast.Hub, log *logger.Logger) *Service {
	clients := ClientSource(func(creds models.VendorCredentials) (VendorClient, error) {
		return pool.Get(creds)
	})
	return &Service{
		Climate:       NewClimateService(clients),
		Commands:      NewCommandService(clients, hub, repos.Events, DefaultRetryPolicy(), log),
		AuditLog:      NewAuditService(repos.Events),
		Authorization: NewAuthService(repos.Users),
	}
}
