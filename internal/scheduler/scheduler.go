// Package scheduler runs the periodic background jobs: expiring overdue
// debriefings, sending due follow-up emails, consolidating back-to-back
// meetings, and materializing recurring ones.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/debriefhub/debriefhub/internal/services"
)

type Config struct {
	DebriefingInterval time.Duration // overdue-debriefing sweep
	EmailInterval      time.Duration // due-email dispatch
	MeetingInterval    time.Duration // consolidation and recurrence pass
}

func DefaultConfig() *Config {
	return &Config{
		DebriefingInterval: 10 * time.Minute,
		EmailInterval:      1 * time.Minute,
		MeetingInterval:    1 * time.Hour,
	}
}

type Scheduler struct {
	debriefings *services.DebriefingService
	emails      *services.EmailService
	meetings    *services.MeetingService
	config      *Config
	logger      *slog.Logger

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func New(
	debriefings *services.DebriefingService,
	emails *services.EmailService,
	meetings *services.MeetingService,
	config *Config,
	logger *slog.Logger,
) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		debriefings: debriefings,
		emails:      emails,
		meetings:    meetings,
		config:      config,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(3)
	go s.loop(ctx, s.config.DebriefingInterval, s.expireDebriefings)
	go s.loop(ctx, s.config.EmailInterval, s.sendDueEmails)
	go s.loop(ctx, s.config.MeetingInterval, s.meetingPass)

	s.logger.Info("background scheduler started")
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info("background scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, job func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) expireDebriefings(ctx context.Context) {
	expired, err := s.debriefings.ExpireOverdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "overdue debriefing sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "expired overdue debriefings", "count", expired)
	}
}

func (s *Scheduler) sendDueEmails(ctx context.Context) {
	sent, err := s.emails.SendDue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "due email dispatch failed", "error", err)
		return
	}
	if sent > 0 {
		s.logger.InfoContext(ctx, "sent scheduled emails", "count", sent)
	}
}

func (s *Scheduler) meetingPass(ctx context.Context) {
	consolidated, err := s.meetings.ConsolidateBackToBack(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "meeting consolidation failed", "error", err)
	} else if consolidated > 0 {
		s.logger.InfoContext(ctx, "consolidated back-to-back meetings", "count", consolidated)
	}

	created, err := s.meetings.MaterializeRecurring(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "recurring materialization failed", "error", err)
	} else if created > 0 {
		s.logger.InfoContext(ctx, "materialized recurring meetings", "count", created)
	}
}
