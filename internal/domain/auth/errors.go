package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrCompanyIDRequired     = errors.New("token carries no company")
	ErrManagerAccessRequired = errors.New("manager or owner role required")
	ErrSelfAccessOnly        = errors.New("employees may only access their own attendance")
)
