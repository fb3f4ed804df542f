package scheduler

import (
	"context"
	"sync"
	"time"

	"fulfillment-service/internal/service"

	"go.uber.org/zap"
)

type ExpiryChecker interface {
	RunExpiryCheck(ctx context.Context) (*service.ExpiryCheckResult, error)
}

type Scheduler struct {
	expiry   ExpiryChecker
	interval time.Duration
	log      *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(expiry ExpiryChecker, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		expiry:   expiry,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting expiry scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.runExpirySweep(ctx)
}

// Stop останавливает планировщик и ждёт завершения текущего прохода
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping expiry scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// runExpirySweep проверяет сроки годности партий каждые interval
func (s *Scheduler) runExpirySweep(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	s.sweep(ctx, "initial expiry sweep failed")

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx, "expiry sweep failed")
		case <-s.stopCh:
			s.log.Info("expiry sweep stopped")
			return
		case <-ctx.Done():
			s.log.Info("expiry sweep cancelled")
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context, failMsg string) {
	if _, err := s.expiry.RunExpiryCheck(ctx); err != nil {
		s.log.Error(failMsg, zap.Error(err))
	}
}

// RunOnceNow выполняет проверку немедленно
func (s *Scheduler) RunOnceNow(ctx context.Context) (*service.ExpiryCheckResult, error) {
	return s.expiry.RunExpiryCheck(ctx)
}
