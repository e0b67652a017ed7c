package repository

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrTeamTaken is returned when a team already has a player in a fantasy game
	ErrTeamTaken = errors.New("team already taken in this fantasy game")
	// ErrDuplicatePlayer is returned when an identity already plays in a fantasy game
	ErrDuplicatePlayer = errors.New("player already in this fantasy game")
)
