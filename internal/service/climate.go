package service

import (
	"context"

	"climate_bridge/internal/models"
)

// ClimateService answers read requests by delegating to the per-account
// vendor client. Typed vendor errors propagate to the caller untouched so the
// HTTP layer can translate them into status codes.
type ClimateService struct {
	clients ClientSource
}

func NewClimateService(clients ClientSource) *ClimateService {
	return &ClimateService{clients: clients}
}

func (s *ClimateService) ListHomes(ctx context.Context, creds models.VendorCredentials) ([]models.HomeSummary, error) {
	client, err := s.clients(creds)
	if err != nil {
		return nil, err
	}
	return client.ListHomes(ctx)
}

func (s *ClimateService) GetDevices(ctx context.Context, creds models.VendorCredentials, homeID int) (map[int]models.DeviceSnapshot, error) {
	client, err := s.clients(creds)
	if err != nil {
		return nil, err
	}
	return client.GetDevices(ctx, homeID)
}

func (s *ClimateService) GetDeviceStatus(ctx context.Context, creds models.VendorCredentials, homeID, deviceID int) (models.DeviceSnapshot, error) {
	client, err := s.clients(creds)
	if err != nil {
		return models.DeviceSnapshot{}, err
	}
	return client.GetDeviceStatus(ctx, homeID, deviceID)
}
