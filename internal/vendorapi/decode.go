package vendorapi

import "climate_bridge/internal/models"

// Value types inside a value-group. Only the first occurrence of each type
// counts; absence leaves the decoded field nil.
const (
	valueTypeAmbientTemp = 13
	valueTypeMode        = 14
	valueTypeFanSpeed    = 15
	valueTypeTargetTemp  = 20
)

// Vendor sentinels: an ambient reading at or below -50 means "no sensor
// reading", a target of 255 means "use the default" (20 °C).
const (
	ambientSentinelC   = -50.0
	targetSentinel     = 255.0
	defaultTargetTempC = 20.0
)

// decodeSnapshot builds a snapshot from one endpoint's value-group and
// metadata entry. Raw inputs are kept on the snapshot for diagnostics.
func decodeSnapshot(deviceID int, name string, values []models.ValuePair, meta map[string]any) models.DeviceSnapshot {
	snap := models.DeviceSnapshot{
		DeviceID:    deviceID,
		Name:        name,
		Model:       metaString(meta, "model"),
		Serial:      metaString(meta, "serial"),
		RawValues:   values,
		RawMetadata: meta,
	}

	for _, pair := range values {
		switch pair.Type {
		case valueTypeAmbientTemp:
			if snap.CurrentTempC == nil {
				snap.CurrentTempC = decodeAmbient(pair.Value)
			}
		case valueTypeTargetTemp:
			if snap.TargetTempC == nil {
				snap.TargetTempC = decodeTarget(pair.Value)
			}
		case valueTypeFanSpeed:
			if snap.FanSpeed == nil {
				fan := int(pair.Value)
				snap.FanSpeed = &fan
			}
		case valueTypeMode:
			if snap.Mode == nil {
				mode := int(pair.Value)
				snap.Mode = &mode
			}
		}
	}
	return snap
}

func decodeAmbient(raw float64) *float64 {
	if raw <= ambientSentinelC {
		return nil
	}
	return &raw
}

func decodeTarget(raw float64) *float64 {
	if raw == targetSentinel {
		v := defaultTargetTempC
		return &v
	}
	return &raw
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}
