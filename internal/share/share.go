package share

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/tada/internal/lists"
	"github.com/nhle/tada/internal/remote"
)

// ErrUnavailable is returned when sharing needs a backend and none is
// configured.
var ErrUnavailable = errors.New("sharing unavailable without a sync backend")

// Service creates share records for lists and keeps the cached shared flag
// in step with the backend.
type Service struct {
	backend remote.Backend
	lists   *lists.Service
	log     *zap.Logger
}

// New returns a sharing service. backend may be nil.
func New(backend remote.Backend, svc *lists.Service, log *zap.Logger) *Service {
	return &Service{backend: backend, lists: svc, log: log}
}

// Share creates (or fetches) the share record of a list. The list must
// already have reached the backend.
func (s *Service) Share(ctx context.Context, listID string) (remote.ShareHandle, error) {
	if s.backend == nil {
		return remote.ShareHandle{}, ErrUnavailable
	}

	l, err := s.lists.List(ctx, listID)
	if err != nil {
		return remote.ShareHandle{}, err
	}

	h, err := s.backend.Share(ctx, listID, l.Name)
	if err != nil {
		s.log.Warn("share failed", zap.String("list_id", listID), zap.Error(err))
		return remote.ShareHandle{}, fmt.Errorf("sharing list: %w", err)
	}

	if err := s.lists.SetShared(ctx, listID, true); err != nil {
		s.log.Warn("caching shared flag", zap.String("list_id", listID), zap.Error(err))
	}
	return h, nil
}

// IsShared asks the backend whether a share record exists. When the
// backend is missing or unreachable the cached flag answers instead.
func (s *Service) IsShared(ctx context.Context, listID string) (bool, error) {
	l, err := s.lists.List(ctx, listID)
	if err != nil {
		return false, err
	}
	if s.backend == nil {
		return l.Shared, nil
	}

	shared, err := s.backend.IsShared(ctx, listID)
	if err != nil {
		s.log.Warn("share status check failed, using cached flag",
			zap.String("list_id", listID),
			zap.Bool("cached", l.Shared),
			zap.Error(err),
		)
		return l.Shared, nil
	}

	if shared != l.Shared {
		if err := s.lists.SetShared(ctx, listID, shared); err != nil {
			s.log.Warn("caching shared flag", zap.String("list_id", listID), zap.Error(err))
		}
	}
	return shared, nil
}
