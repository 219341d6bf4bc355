package matching

import "errors"

// semua error di bawah dibungkus server.WrapErrorf dengan code server.ErrInvalidInput.
var (
	ErrInvalidObservations  = errors.New("invalid observation sequence")
	ErrInvalidConfig        = errors.New("invalid matcher config")
	ErrMapContractViolation = errors.New("map query contract violation")
)
