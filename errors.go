package hookline

import "errors"

// Sentinel errors returned by hookline operations.
var (
	// ErrNoStore is returned when an Engine is created without a store.
	ErrNoStore = errors.New("hookline: store is required")

	// ErrNoSurveySource is returned when an Engine is created without a survey source.
	ErrNoSurveySource = errors.New("hookline: survey source is required")

	// ErrSurveyNotFound is returned when a referenced survey does not exist.
	ErrSurveyNotFound = errors.New("hookline: survey not found")

	// ErrWebhookNotFound is returned when a webhook subscription cannot be found.
	ErrWebhookNotFound = errors.New("hookline: webhook not found")

	// ErrAttemptNotFound is returned when a delivery attempt cannot be found.
	ErrAttemptNotFound = errors.New("hookline: delivery attempt not found")

	// ErrEventTypeNotFound is returned when an event type is not registered in the catalog.
	ErrEventTypeNotFound = errors.New("hookline: event type not found")

	// ErrAlreadyDelivered is returned when manually retrying an attempt that succeeded.
	ErrAlreadyDelivered = errors.New("hookline: attempt already delivered")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("hookline: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("hookline: migration failed")
)
