package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/store"
)

// HousekeepingService periodically deletes expired invitations and sessions
// so neither table grows without bound.
type HousekeepingService struct {
	Store       store.Store
	Invitations *InvitationService
	Logger      *slog.Logger
	Interval    time.Duration

	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, invitations *InvitationService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:       st,
		Invitations: invitations,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start runs the sweep once immediately and then on every tick, in the
// background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep performs one cleanup pass. Each deletion is independent; a failure
// in one does not stop the other.
func (s *HousekeepingService) Sweep(ctx context.Context) (invitations, sessions int64) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	n, err := s.Invitations.DeleteExpiredInvitations(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired invitations", "error", err)
	} else {
		invitations = n
	}

	n, err = s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		sessions = n
	}

	s.Logger.Info("housekeeping sweep completed",
		slog.Int64("invitations_deleted", invitations),
		slog.Int64("sessions_deleted", sessions),
	)
	return invitations, sessions
}
