// Package handler provides the HTTP handlers and route table for the
// GoodJobs API.
//
// Each handler struct holds the services it needs and is built with a
// NewXxxHandler constructor. NewRouter mounts them on a gorilla/mux router;
// authentication is resolved by the outer middleware chain and individual
// routes are gated with middleware.RequireAuth or middleware.RequireAdmin.
//
// # Response Format
//
// Successful responses are wrapped in {"data": ..., "_links": ...}; lists
// add a "count". Errors are RFC 9457 Problem Details produced by
// MapServiceError from the service layer's domain errors.
package handler
