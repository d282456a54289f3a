package services

import (
	"context"
	"time"

	"github.com/upahan/upahan-api/internal/jobs"
)

const overdueSweepJob = "overdue_sweep"

type JobService struct {
	worker  *jobs.Worker
	billSvc *BillService
}

func NewJobService(worker *jobs.Worker, billSvc *BillService) *JobService {
	return &JobService{
		worker:  worker,
		billSvc: billSvc,
	}
}

// ScheduleOverdueSweep runs the overdue sweep at startup and then every interval
func (s *JobService) ScheduleOverdueSweep(interval time.Duration) {
	s.worker.ScheduleEveryImmediate(overdueSweepJob, interval, s.sweep)
}

// TriggerOverdueSweep runs the sweep once in the background
func (s *JobService) TriggerOverdueSweep() {
	s.worker.EnqueueAsync(overdueSweepJob, s.sweep)
}

func (s *JobService) sweep(ctx context.Context) error {
	_, err := s.billSvc.MarkOverdue(ctx)
	return err
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"max_concurrent": stats.MaxConcurrent,
	}
}
