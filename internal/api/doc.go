// Package api handles incoming HTTP requests, routing, request decoding and
// validation, and response formatting. It translates HTTP concerns into
// calls on the services in internal/service and maps their domain errors to
// status codes.
package api
