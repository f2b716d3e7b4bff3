package memelang

import "errors"

// Error kinds surfaced by the language core and the engine. Callers
// match them with errors.Is; messages carry the offending input.
var (
	ErrSyntax       = errors.New("syntax error")
	ErrUnknown      = errors.New("unknown identifier")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrShape        = errors.New("shape violation")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidJob   = errors.New("invalid job")
)
