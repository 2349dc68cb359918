// Package service contains the application use cases: user registration and
// login, and the task operations. It orchestrates the stores defined in
// internal/store, the access decisions of internal/authz and the status
// change notifier, and never depends on a specific storage implementation.
//
// Errors returned by services carry a domain.Error in their chain; the API
// layer maps its kind to an HTTP status.
package service
