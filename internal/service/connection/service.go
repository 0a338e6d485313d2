// Package connection decides whether two members may exchange messages.
// Access is granted by an accepted interest in either direction and is
// re-evaluated against the store on every call; nothing is cached.
package connection

import (
	"context"

	"github.com/oggyb/vivah/internal/app"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
)

type Service struct {
	appCtx    *app.AppContext
	interests *repository.InterestRepository
}

func NewConnectionService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		interests: repository.NewInterestRepository(appCtx.DB),
	}
}

// CanMessage reports whether a and b share an accepted interest.
func (s *Service) CanMessage(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" || a == b {
		return false, nil
	}
	ok, err := s.interests.ExistsAccepted(ctx, a, b)
	if err != nil {
		s.appCtx.Logger.Error("ExistsAccepted failed", "a", a, "b", b, "err", err)
		return false, svcErr.Map(err)
	}
	return ok, nil
}

// Require returns InvalidState unless a and b may message each other.
func (s *Service) Require(ctx context.Context, a, b string) error {
	ok, err := s.CanMessage(ctx, a, b)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.InvalidState("not authorized to message")
	}
	return nil
}

// Connections returns the ids of everyone userID may message.
func (s *Service) Connections(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.interests.AcceptedCounterparts(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("AcceptedCounterparts failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return ids, nil
}
