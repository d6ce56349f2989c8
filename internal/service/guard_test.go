package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medico-project/medico-go-api/internal/models"
)

// linkCheckStub answers HasAcceptedLink from a fixed set of unordered pairs.
type linkCheckStub struct {
	pairs map[string]bool
	err   error
}

func pairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

func (s *linkCheckStub) accept(a, b uint) {
	if s.pairs == nil {
		s.pairs = make(map[string]bool)
	}
	s.pairs[pairKey(a, b)] = true
}

func (s *linkCheckStub) HasAcceptedLink(_ context.Context, userA, userB uint) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.pairs[pairKey(userA, userB)], nil
}

func (s *linkCheckStub) Create(context.Context, *models.UserLink) error { return nil }
func (s *linkCheckStub) GetByID(context.Context, uint) (models.UserLink, error) {
	return models.UserLink{}, nil
}
func (s *linkCheckStub) ListForUser(context.Context, uint) ([]models.UserLink, error) {
	return nil, nil
}
func (s *linkCheckStub) ListPendingForUser(context.Context, uint) ([]models.UserLink, error) {
	return nil, nil
}
func (s *linkCheckStub) Save(context.Context, *models.UserLink) error { return nil }
func (s *linkCheckStub) Delete(context.Context, uint) error           { return nil }

func twoPersonThread(a, b uint) models.Thread {
	return models.Thread{
		ID:           1,
		Participants: []models.User{{ID: a}, {ID: b}},
	}
}

func TestAccessGuardDeniesNonParticipants(t *testing.T) {
	links := &linkCheckStub{}
	links.accept(1, 2)
	guard := NewAccessGuard(links, testLogger())

	allowed, err := guard.CanJoinThread(context.Background(), 3, twoPersonThread(1, 2))
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAccessGuardRequiresAcceptedLinkToEveryOther(t *testing.T) {
	links := &linkCheckStub{}
	links.accept(1, 2)
	links.accept(1, 3)
	guard := NewAccessGuard(links, testLogger())

	thread := models.Thread{ID: 1, Participants: []models.User{{ID: 1}, {ID: 2}, {ID: 3}}}

	// User 1 is linked to both other participants.
	allowed, err := guard.CanJoinThread(context.Background(), 1, thread)
	require.NoError(t, err)
	require.True(t, allowed)

	// User 2 is linked to 1 but not to 3.
	allowed, err = guard.CanJoinThread(context.Background(), 2, thread)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAccessGuardFailsClosedOnLookupError(t *testing.T) {
	boom := errors.New("db unavailable")
	guard := NewAccessGuard(&linkCheckStub{err: boom}, testLogger())

	allowed, err := guard.CanJoinThread(context.Background(), 1, twoPersonThread(1, 2))
	require.ErrorIs(t, err, boom)
	require.False(t, allowed)
}

func TestAccessGuardUserChannelOnlyAdmitsOwner(t *testing.T) {
	guard := NewAccessGuard(&linkCheckStub{}, testLogger())

	require.True(t, guard.CanJoinUserChannel(4, 4))
	require.False(t, guard.CanJoinUserChannel(4, 5))
	require.False(t, guard.CanJoinUserChannel(0, 0))
}
