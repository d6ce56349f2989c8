package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// AccessGuard decides whether an authenticated identity may join a room. The
// decision is recomputed from persisted relationships on every join; nothing
// is cached across connections.
type AccessGuard interface {
	// CanJoinThread requires the user to be a thread participant with an
	// accepted link to every other participant. Any missing link, or any
	// lookup error, denies the whole join.
	CanJoinThread(ctx context.Context, userID uint, thread models.Thread) (bool, error)
	// CanJoinUserChannel only ever admits the channel owner.
	CanJoinUserChannel(userID, ownerID uint) bool
}

type accessGuard struct {
	links  repository.LinkRepository
	logger zerolog.Logger
}

// NewAccessGuard constructs the room authorization guard.
func NewAccessGuard(links repository.LinkRepository, logger zerolog.Logger) AccessGuard {
	return &accessGuard{
		links:  links,
		logger: logger.With().Str("component", "access_guard").Logger(),
	}
}

func (g *accessGuard) CanJoinThread(ctx context.Context, userID uint, thread models.Thread) (bool, error) {
	if !thread.HasParticipant(userID) {
		g.logger.Debug().Uint("user_id", userID).Uint("thread_id", thread.ID).Msg("join denied: not a participant")
		return false, nil
	}

	for _, other := range thread.Participants {
		if other.ID == userID {
			continue
		}

		linked, err := g.links.HasAcceptedLink(ctx, userID, other.ID)
		if err != nil {
			return false, err
		}
		if !linked {
			g.logger.Debug().
				Uint("user_id", userID).
				Uint("other_id", other.ID).
				Uint("thread_id", thread.ID).
				Msg("join denied: link not accepted")
			return false, nil
		}
	}

	return true, nil
}

func (g *accessGuard) CanJoinUserChannel(userID, ownerID uint) bool {
	return userID != 0 && userID == ownerID
}
