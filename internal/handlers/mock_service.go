package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"climate_bridge/internal/broadcast"
	"climate_bridge/internal/models"
	"climate_bridge/internal/service"
)

// mockService is a hand-rolled stub implementing every service interface the
// handlers depend on. Zero values mean "succeed with empty data"; tests set
// the fields they care about.
type mockService struct {
	homes       []models.HomeSummary
	homesErr    error
	devices     map[int]models.DeviceSnapshot
	devicesErr  error
	snapshot    models.DeviceSnapshot
	snapshotErr error

	receipt  service.Receipt
	enqueued []enqueuedCommand

	events    []models.CommandEvent
	eventsErr error
	gotFilter service.LogFilter

	signUpID  int
	signUpErr error
	gotSignUp service.SignUpParams
	token     string
	tokenErr  error

	parsedUserID int
	parseErr     error
	creds        models.VendorCredentials
	credsErr     error
	gotCreds     models.VendorCredentials
}

type enqueuedCommand struct {
	creds    models.VendorCredentials
	homeID   int
	deviceID int
	settings models.ModeSettings
}

// authorizedMock is a mockService that lets any token through.
func authorizedMock() *mockService {
	return &mockService{
		parsedUserID: 1,
		creds:        models.VendorCredentials{Email: "user@example.com", Password: "pw"},
	}
}

func (m *mockService) ListHomes(ctx context.Context, creds models.VendorCredentials) ([]models.HomeSummary, error) {
	m.gotCreds = creds
	return m.homes, m.homesErr
}

func (m *mockService) GetDevices(ctx context.Context, creds models.VendorCredentials, homeID int) (map[int]models.DeviceSnapshot, error) {
	m.gotCreds = creds
	return m.devices, m.devicesErr
}

func (m *mockService) GetDeviceStatus(ctx context.Context, creds models.VendorCredentials, homeID, deviceID int) (models.DeviceSnapshot, error) {
	m.gotCreds = creds
	return m.snapshot, m.snapshotErr
}

func (m *mockService) Enqueue(creds models.VendorCredentials, homeID, deviceID int, settings models.ModeSettings) service.Receipt {
	m.enqueued = append(m.enqueued, enqueuedCommand{creds: creds, homeID: homeID, deviceID: deviceID, settings: settings})
	return m.receipt
}

func (m *mockService) List(ctx context.Context, f service.LogFilter) ([]models.CommandEvent, error) {
	m.gotFilter = f
	return m.events, m.eventsErr
}

func (m *mockService) SignUp(p service.SignUpParams) (int, error) {
	m.gotSignUp = p
	return m.signUpID, m.signUpErr
}

func (m *mockService) GenerateToken(username, password string) (string, error) {
	return m.token, m.tokenErr
}

func (m *mockService) ParseToken(accessToken string) (int, error) {
	return m.parsedUserID, m.parseErr
}

func (m *mockService) Credentials(userID int) (models.VendorCredentials, error) {
	return m.creds, m.credsErr
}

// newTestHandler builds a Handler over the mock with a quiet hub.
func newTestHandler(m *mockService) (*Handler, *broadcast.Hub) {
	gin.SetMode(gin.TestMode)
	hub := broadcast.NewWithHeartbeat(nil, time.Hour)
	svc := &service.Service{
		Climate:       m,
		Commands:      m,
		AuditLog:      m,
		Authorization: m,
	}
	return NewHandler(svc, hub, nil), hub
}

func newTestRouter(m *mockService) *gin.Engine {
	h, _ := newTestHandler(m)
	return h.InitRoutes()
}
