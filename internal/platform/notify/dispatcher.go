package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Request is a queued template send.
type Request struct {
	TemplateID string
	Data       map[string]string
	Recipient  string
}

// Dispatcher drains a queue of alert requests in the background so domain
// services never block on delivery.
type Dispatcher struct {
	manager *Manager
	queue   chan Request
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher with the given queue depth.
func NewDispatcher(manager *Manager, depth int, logger zerolog.Logger) *Dispatcher {
	if depth < 1 {
		depth = 64
	}
	return &Dispatcher{
		manager: manager,
		queue:   make(chan Request, depth),
		logger:  logger,
	}
}

// Enqueue adds a request to the queue without blocking. If the queue is full
// the request is dropped and logged; alerts are advisory, never load-bearing.
func (d *Dispatcher) Enqueue(req Request) {
	select {
	case d.queue <- req:
	default:
		d.logger.Warn().
			Str("template", req.TemplateID).
			Str("recipient", req.Recipient).
			Msg("alert queue full, dropping alert")
	}
}

// Start drains the queue until ctx is cancelled. Call in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			if _, err := d.manager.SendFromTemplate(ctx, req.TemplateID, req.Data, req.Recipient); err != nil {
				d.logger.Error().Err(err).
					Str("template", req.TemplateID).
					Str("recipient", req.Recipient).
					Msg("alert delivery failed")
			}
		}
	}
}
