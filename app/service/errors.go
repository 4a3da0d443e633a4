package service

import "errors"

var (
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("incorrect email or password")
	ErrAccountNotActivated = errors.New("account is not activated")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidToken        = errors.New("token is expired or invalid")
	ErrWeakPassword        = errors.New("password does not meet policy requirements")
	ErrRevoked             = errors.New("session has been revoked")
	ErrTodoNotFound        = errors.New("todo not found")
	ErrTodoItemNotFound    = errors.New("todo item not found")
)
