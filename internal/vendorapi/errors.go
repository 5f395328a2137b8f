package vendorapi

import "fmt"

// ConfigurationError reports bad or missing local settings, e.g. an invalid
// vendor timeout. Raised before any network traffic happens.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Setting, e.Reason)
}

// AuthenticationError reports that the vendor rejected credentials or that
// login could not produce a usable token.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vendor authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "vendor authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// UpstreamError reports that the vendor was reachable but answered with a
// failure status, or that the transport failed outright (Status 0).
type UpstreamError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vendor call %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("vendor call %s failed with status %d", e.Endpoint, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ProtocolError reports a vendor response that could not be parsed as the
// expected structured payload.
type ProtocolError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("vendor call %s returned malformed payload: %s", e.Endpoint, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NotFoundError reports a resource absent from an otherwise valid response.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}
