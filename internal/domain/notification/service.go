package notification

import (
	"context"

	"go.uber.org/zap"
)

// Service persists notifications and pushes them to connected clients.
type Service struct {
	repo Repository
	hub  *Hub
	log  *zap.Logger
}

func NewService(repo Repository, hub *Hub, log *zap.Logger) *Service {
	return &Service{repo: repo, hub: hub, log: log}
}

// Notify stores the message and delivers it live if the user is connected.
// The store write is authoritative; the push is best-effort.
func (s *Service) Notify(ctx context.Context, userID int64, message string) error {
	n := &Notification{
		UserID:  userID,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	s.hub.SendToUser(userID, message)
	s.log.Debug("notification delivered", zap.Int64("user_id", userID))
	return nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}
