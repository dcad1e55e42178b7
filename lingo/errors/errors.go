package errors

import "errors"

var (
	ErrAuth              = errors.New("unauthorized")
	ErrValidation        = errors.New("invalid payload")
	ErrProvider          = errors.New("completion provider failure")
	ErrPersistence       = errors.New("message store failure")
	ErrSessionActive     = errors.New("translation already streaming for message")
	ErrUnknownConnection = errors.New("unknown connection")
)
