// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/selection"
)

var (
	ErrNotFound            = errors.New("questionnaire not found")
	ErrEmailRequired       = errors.New("email is required")
	ErrIncompleteSelection = errors.New("exactly 3 options must be selected in each section")
	ErrDuplicateIndex      = errors.New("an option was selected twice in the same section")
	ErrIndexOutOfRange     = errors.New("selected option does not exist")
	ErrNotRegistered       = errors.New("email is not on the registered voter list")
	ErrAlreadyVoted        = errors.New("already voted in this dimension")
	ErrInvalidDimension    = errors.New("unknown dimension")
)

// writeDomainError maps a domain error to its HTTP status. Anything
// unrecognized is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, err error, op string) {
	var status int
	switch {
	case errors.Is(err, ErrEmailRequired),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, ErrIncompleteSelection),
		errors.Is(err, ErrDuplicateIndex),
		errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrInvalidDimension),
		errors.Is(err, selection.ErrInvalidSection),
		errors.Is(err, selection.ErrInvalidIndex):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotRegistered):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAlreadyVoted), errors.Is(err, selection.ErrSectionFull):
		status = http.StatusConflict
	default:
		slog.Error(op+" failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.ErrorResponse(w, status, err.Error())
}
