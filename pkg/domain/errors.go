package domain

import "errors"

// ErrInvalidTransition is returned when an event is not valid in the current session status.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrNoPendingOrientation is returned when confirming or cancelling with no rune awaiting orientation.
var ErrNoPendingOrientation = errors.New("no rune awaiting orientation")

// ErrUnknownMode is returned for an acquisition mode other than physical or virtual.
var ErrUnknownMode = errors.New("unknown reading mode")

// ErrRuneNotFound is returned when a rune name is not in the catalog.
var ErrRuneNotFound = errors.New("rune not found")

// ErrSpreadNotFound is returned when a spread name is not in the catalog.
var ErrSpreadNotFound = errors.New("spread not found")

// ErrRecordNotFound is returned when a reading record ID cannot be found in the store.
var ErrRecordNotFound = errors.New("reading not found")

// ErrInsufficientHistory is returned when pattern analysis is requested with too few readings.
var ErrInsufficientHistory = errors.New("not enough readings for analysis")

// ErrMalformedInterpretation is returned when the interpreter's response breaks its contract.
var ErrMalformedInterpretation = errors.New("malformed interpretation")
