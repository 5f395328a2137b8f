package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"climate_bridge/internal/models"
	"climate_bridge/internal/vendorapi"
)

// Request DTO for a mode change.
type modeRequest struct {
	Mode        string   `json:"mode" binding:"required"` // off | cool | heat | dry | fan_only | auto | no_change
	TargetTempC *float64 `json:"target_temp_c,omitempty"`
	Fan         string   `json:"fan,omitempty"` // low | mid | high | auto | no_change
	Flags       *int     `json:"flags,omitempty"`
}

// SetModeRequest is an exported model for Swagger docs of the mode payload.
type SetModeRequest struct {
	// Mode to set. Allowed: off, cool, heat, dry, fan_only, auto, no_change
	Mode string `json:"mode" example:"cool"`
	// Target temperature in Celsius
	TargetTempC float64 `json:"target_temp_c,omitempty" example:"21"`
	// Fan speed. Allowed: low, mid, high, auto, no_change
	Fan string `json:"fan,omitempty" example:"auto"`
}

// @Summary      Set device mode
// @Description  Accepted for asynchronous processing; the result arrives on the event stream as device-update or command-error.
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        homeId    path  int             true  "Home id"
// @Param        deviceId  path  int             true  "Device id"
// @Param        body      body  SetModeRequest  true  "Mode payload"
// @Success      202   {object}  map[string]interface{}  "status, job_id, position"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/homes/{homeId}/devices/{deviceId}/mode [post]
// @Security     BearerAuth
func (h *Handler) setDeviceMode(c *gin.Context) {
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

	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	settings := models.ModeSettings{
		Mode:        req.Mode,
		TargetTempC: req.TargetTempC,
		Fan:         req.Fan,
		Flags:       req.Flags,
	}
	// Reject unknown enum values here so the caller gets a 400 instead of a
	// broadcast command-error later.
	if err := vendorapi.ValidateSettings(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds, _ := credentials(c)
	receipt := h.services.Commands.Enqueue(creds, homeID, deviceID, settings)
	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"job_id":   receipt.JobID,
		"position": receipt.Position,
	})
}
