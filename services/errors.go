package services

import "errors"

// Errors shared by the services and mapped to HTTP statuses in handlers.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamCountryConflict = errors.New("a team is already registered for this country")
	ErrTeamInTournament    = errors.New("team is part of the current bracket")
	ErrNotEnoughTeams      = errors.New("not enough registered teams to start the tournament")

	ErrSlotBusy = errors.New("a live match is already running for this slot")

	ErrInvalidCredentials = errors.New("invalid password")
	ErrAuthDisabled       = errors.New("admin login is disabled")
)
