// Package repository provides the durable booking store backed by MySQL.
// Sentinel errors defined here let handlers and the admission service
// distinguish failure modes without inspecting driver errors.
package repository

import "errors"

// ErrBookingNotFound is returned when no booking exists for the
// requested identifier. Handlers translate it into an HTTP 404.
var ErrBookingNotFound = errors.New("booking not found")
