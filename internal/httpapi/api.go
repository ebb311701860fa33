package httpapi

import (
	"context"
	"time"

	"cyberguard/internal/logger"
	"cyberguard/internal/quiz"
)

type API struct {
	service *quiz.Service
	log     *logger.Logger
	now     func() time.Time
	health  func(context.Context) error
}

type APIOption func(*API)

// WithHealthCheck makes /healthz report unavailable while check fails.
func WithHealthCheck(check func(context.Context) error) APIOption {
	return func(a *API) {
		a.health = check
	}
}

func NewAPI(service *quiz.Service, log *logger.Logger, opts ...APIOption) *API {
	if log == nil {
		log = logger.NewNop()
	}
	a := &API{
		service: service,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
