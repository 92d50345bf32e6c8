package identity

import "errors"

var (
	ErrEmailInUse         = errors.New("identity: email already in use")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrInvalidResetToken  = errors.New("identity: invalid or expired reset token")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrRoleNotFound       = errors.New("identity: role not found")
	ErrPermissionNotFound = errors.New("identity: permission not found")
	ErrAlreadyExists      = errors.New("identity: name already in use")
	ErrProtected          = errors.New("identity: system entity cannot be deleted")
	ErrConfiguration      = errors.New("identity: configuration error")
	ErrInvalidInput       = errors.New("identity: invalid input")
)
