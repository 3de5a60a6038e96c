// Package services defines the business logic for the integration query
// pipeline, prompt enhancement, and webhook ingestion. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a context or prompt request carries
	// a blank user message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMissingUser is returned when a request does not identify a tenant.
	ErrMissingUser = errors.New("user id is required")

	// ErrMalformedPayload is returned when a webhook payload cannot be
	// decoded into the expected provider shape.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnknownTopic is returned when a webhook event names a topic or
	// subscription type this service does not ingest.
	ErrUnknownTopic = errors.New("unknown webhook topic")
)
