package core

import "errors"

var (
	// ErrNotFound reports that no card with the requested id exists.
	ErrNotFound = errors.New("card not found")

	// ErrTextTooLong reports card text over the 500 character limit.
	ErrTextTooLong = errors.New("card text exceeds 500 characters")

	// ErrBoardFull reports that the board already holds the configured
	// maximum number of cards.
	ErrBoardFull = errors.New("board is full")

	// ErrImageTooLarge reports an image payload over the configured budget.
	ErrImageTooLarge = errors.New("image exceeds size budget")

	// ErrStorageUnavailable reports missing backend credentials or
	// configuration. Reads degrade to an empty board; writes surface it.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
