package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrModuleNotFound     = errors.New("module not found")
	ErrModuleLocked       = errors.New("module is locked")
	ErrModuleExists       = errors.New("module id already exists")
	ErrModuleReferenced   = errors.New("module is required by a checkpoint quiz")
	ErrNoContent          = errors.New("module has no content")
	ErrUnknownModule      = errors.New("unknown module id")
	ErrInvalidModule      = errors.New("invalid module")
	ErrCheckpointNotFound = errors.New("checkpoint quiz not found")
	ErrCheckpointLocked   = errors.New("checkpoint quiz is locked")
	ErrCheckpointExists   = errors.New("checkpoint number already exists")
	ErrCheckpointPassed   = errors.New("checkpoint quiz already passed")
	ErrInvalidCheckpoint  = errors.New("invalid checkpoint quiz")
	ErrInvalidScoreRecord = errors.New("invalid module score record")

	ErrSessionNotFound = errors.New("quiz session not found")
	ErrSessionExpired  = errors.New("quiz session expired")
)
