// Package repository defines error values shared across repositories.
// These sentinels let handlers distinguish failure scenarios without
// inspecting database errors directly. sql.ErrNoRows is translated at
// the repository boundary so callers only ever see ErrTicketNotFound.
package repository

import "errors"

// ErrTicketNotFound is returned when an operation references a ticket
// id that does not exist. Handlers should translate this into an HTTP
// 404 response.
var ErrTicketNotFound = errors.New("ticket not found")
