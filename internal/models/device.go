package models

// HomeSummary is one entry from the vendor's home enumeration.
type HomeSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ValuePair is a single (type, value) reading from the vendor's positional
// value-group encoding.
type ValuePair struct {
	Type  int     `json:"type"`
	Value float64 `json:"value"`
}

// DeviceSnapshot is the decoded state of one climate unit at fetch time.
// It is built fresh on every status read and never mutated; optional fields
// are nil when the vendor reported no reading for them.
type DeviceSnapshot struct {
	DeviceID     int            `json:"device_id"`
	Name         string         `json:"name"`
	Model        string         `json:"model,omitempty"`
	Serial       string         `json:"serial,omitempty"`
	CurrentTempC *float64       `json:"current_temp_c"`
	TargetTempC  *float64       `json:"target_temp_c"`
	FanSpeed     *int           `json:"fan_speed"`
	Mode         *int           `json:"mode"`
	RawValues    []ValuePair    `json:"raw_values,omitempty"`
	RawMetadata  map[string]any `json:"raw_metadata,omitempty"`
}
