package downloader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service runs requests concurrently with a global bound on in-flight transfers
type Service struct {
	orchestrator *Orchestrator
	transport    Transport
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool

	// OnOutcome, when set, is called after every request completes
	OnOutcome func(Request, Outcome)
}

// NewService creates a service that runs at most maxConcurrent requests at once
func NewService(ctx context.Context, orchestrator *Orchestrator, transport Transport, maxConcurrent int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	group := &errgroup.Group{}
	if maxConcurrent > 0 {
		group.SetLimit(maxConcurrent)
	}
	return &Service{
		orchestrator: orchestrator,
		transport:    transport,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		group:        group,
	}
}

// Submit schedules a request. When the service is saturated or shutting down
// the chat gets a busy reply and Submit returns false.
func (s *Service) Submit(req Request) bool {
	s.mu.Lock()
	accepted := !s.closed && s.group.TryGo(func() error {
		s.run(req)
		return nil
	})
	s.mu.Unlock()

	if !accepted {
		s.logger.Warn("request rejected, service busy", zap.Int64("chat_id", req.ChatID))
		replyCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), statusEditTimeout)
		defer cancel()
		if _, err := s.transport.SendMessage(replyCtx, req.ChatID, ServiceBusyText, nil); err != nil {
			s.logger.Warn("failed to send busy reply", zap.Error(err))
		}
	}
	return accepted
}

func (s *Service) run(req Request) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("request handler panicked",
				zap.Int64("chat_id", req.ChatID),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	outcome := s.orchestrator.Handle(s.ctx, req)
	if s.OnOutcome != nil {
		s.OnOutcome(req, outcome)
	}
}

// Shutdown stops accepting requests, cancels in-flight transfers and waits for
// them to write their final status, or until ctx expires
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every accepted request has finished
func (s *Service) Wait() error {
	return s.group.Wait()
}

