package providers

import "fmt"

// ConfigurationError means the meeting record itself is not set up for
// ingestion; retrying cannot help until a user fixes the meeting.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("meeting is not configured for transcript ingestion: %s", e.Reason)
}

// NotFoundError means the provider does not recognize the referenced
// meeting or event.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s was not found on the provider side", e.Resource)
}

// NotReadyError means the transcript or recording is not available yet; the
// same ingestion can succeed when retried later.
type NotReadyError struct {
	Hint string
}

func (e *NotReadyError) Error() string {
	return e.Hint
}

type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("meeting provider %q has no transcript ingestion support", e.Provider)
}

// DeliveryError reports a failed notification mail. It never rolls back a
// successful ingestion; callers log it and move on.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("could not deliver transcript notification: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
