package services

import (
	"log"
	"time"
)

// SchedulerService drives the periodic scan loop. The original tool polled
// the export share on a timer; this is that loop, minus the UI refresh.
type SchedulerService interface {
	Start()
	Stop()
}

type schedulerService struct {
	reconcileService ReconcileService
	interval         time.Duration
	logger           *log.Logger
	stop             chan struct{}
	done             chan struct{}
}

func NewSchedulerService(reconcileService ReconcileService, interval time.Duration, logger *log.Logger) SchedulerService {
	return &schedulerService{
		reconcileService: reconcileService,
		interval:         interval,
		logger:           logger,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

func (s *schedulerService) Start() {
	go s.run()
}

func (s *schedulerService) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := s.reconcileService.ScanAndReconcile()
			if err != nil {
				// Batches are atomic per item; a failed run leaves nothing
				// half-applied, so the next tick simply retries.
				s.logger.Printf("scheduled scan failed: %v", err)
				continue
			}
			s.logger.Printf("scheduled scan %s complete", report.BatchID)
		case <-s.stop:
			return
		}
	}
}

func (s *schedulerService) Stop() {
	close(s.stop)
	<-s.done
}
