package config

import "errors"

var (
	ErrNameRequired    = errors.New("service name is required")
	ErrServiceExists   = errors.New("service already registered")
	ErrServiceNotFound = errors.New("service not registered")
)
