package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"climate_bridge/internal/vendorapi"
)

const (
	errInvalidHomeID   = "invalid homeId"
	errInvalidDeviceID = "invalid deviceId"
)

// vendorErrorStatus translates the vendor client's typed errors into HTTP
// status codes for read responses.
func vendorErrorStatus(err error) int {
	var (
		notFound *vendorapi.NotFoundError
		auth     *vendorapi.AuthenticationError
		upstream *vendorapi.UpstreamError
		protocol *vendorapi.ProtocolError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &auth), errors.As(err, &upstream), errors.As(err, &protocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondVendorError logs and writes one vendor-side failure.
func (h *Handler) respondVendorError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(vendorErrorStatus(err), gin.H{"error": err.Error()})
}

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	return v, err == nil
}

// @Summary      List homes
// @Tags         climate
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, homes"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/homes [get]
// @Security     BearerAuth
func (h *Handler) listHomes(c *gin.Context) {
	creds, _ := credentials(c)
	homes, err := h.services.Climate.ListHomes(c.Request.Context(), creds)
	if err != nil {
		h.respondVendorError(c, "list_homes_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(homes), "homes": homes})
}

// @Summary      List devices with status
// @Tags         climate
// @Produce      json
// @Param        homeId  path  int  true  "Home id"
// @Success      200  {object}  map[string]interface{}  "home_id, devices"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/homes/{homeId}/devices [get]
// @Security     BearerAuth
func (h *Handler) getDevices(c *gin.Context) {
	homeID, ok := pathInt(c, "homeId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidHomeID})
		return
	}

	creds, _ := credentials(c)
	devices, err := h.services.Climate.GetDevices(c.Request.Context(), creds, homeID)
	if err != nil {
		h.respondVendorError(c, "get_devices_failed", err, "home_id", homeID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"home_id": homeID, "devices": devices})
}

// @Summary      Get one device's status
// @Tags         climate
// @Produce      json
// @Param        homeId    path  int  true  "Home id"
// @Param        deviceId  path  int  true  "Device id"
// @Success      200  {object}  models.DeviceSnapshot
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/homes/{homeId}/devices/{deviceId} [get]
// @Security     BearerAuth
func (h *Handler) getDeviceStatus(c *gin.Context) {
	homeID, ok := pathInt(c, "homeId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidHomeID})
		return
	}
	deviceID, ok := pathInt(c, "deviceId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDeviceID})
		return
	}

	creds, _ := credentials(c)
	snap, err := h.services.Climate.GetDeviceStatus(c.Request.Context(), creds, homeID, deviceID)
	if err != nil {
		h.respondVendorError(c, "get_device_status_failed", err, "home_id", homeID, "device_id", deviceID)
		return
	}
	c.JSON(http.StatusOK, snap)
}
