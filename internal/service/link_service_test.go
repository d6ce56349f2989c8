package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// captureDispatcher records dispatched events instead of broadcasting them.
type captureDispatcher struct {
	events []DomainEvent
}

func (d *captureDispatcher) Dispatch(_ context.Context, event DomainEvent) {
	d.events = append(d.events, event)
}

func setupServiceDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

type linkFixture struct {
	service    *LinkService
	links      repository.LinkRepository
	dispatcher *captureDispatcher
	patient    models.User
	doctor     models.User
}

func setupLinkFixture(t *testing.T) linkFixture {
	t.Helper()
	db := setupServiceDB(t, &models.User{}, &models.UserLink{})

	patient := models.User{Username: "patient", Role: models.RolePatient}
	doctor := models.User{Username: "doctor", Role: models.RoleDoctor}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&doctor).Error)

	linkRepo := repository.NewLinkRepository(db)
	userRepo := repository.NewUserRepository(db)
	dispatcher := &captureDispatcher{}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewLinkService(linkRepo, userRepo, dispatcher, validate, testLogger())

	return linkFixture{service: svc, links: linkRepo, dispatcher: dispatcher, patient: patient, doctor: doctor}
}

func (f linkFixture) requestLink(t *testing.T) dto.LinkResponse {
	t.Helper()
	link, err := f.service.Request(context.Background(), Actor{ID: f.patient.ID, Role: models.RolePatient}, dto.LinkCreateRequest{
		ToUserID: f.doctor.ID,
		LinkType: models.LinkTypeDoctorPatient,
	})
	require.NoError(t, err)
	return link
}

func TestLinkServiceRequestCreatesPendingLink(t *testing.T) {
	fixture := setupLinkFixture(t)

	link := fixture.requestLink(t)
	require.Equal(t, models.LinkStatusPending, link.Status)
	require.Equal(t, fixture.patient.ID, link.FromUserID)
	require.Equal(t, fixture.doctor.ID, link.ToUserID)
	require.Equal(t, "patient", link.FromUserUsername)
	require.Empty(t, fixture.dispatcher.events, "requesting a link is not an event")

	_, err := fixture.service.Request(context.Background(), Actor{ID: fixture.patient.ID}, dto.LinkCreateRequest{
		ToUserID: fixture.patient.ID,
		LinkType: models.LinkTypeDoctorPatient,
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLinkServiceAcceptNotifiesRequester(t *testing.T) {
	fixture := setupLinkFixture(t)
	link := fixture.requestLink(t)

	// Only the recipient may accept.
	_, err := fixture.service.Accept(context.Background(), Actor{ID: fixture.patient.ID}, link.ID)
	require.ErrorIs(t, err, ErrNotAuthorised)

	accepted, err := fixture.service.Accept(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID)
	require.NoError(t, err)
	require.Equal(t, models.LinkStatusAccepted, accepted.Status)

	require.Len(t, fixture.dispatcher.events, 1)
	event := fixture.dispatcher.events[0]
	require.Equal(t, EventLinkAccepted, event.Kind)
	require.Equal(t, fixture.doctor.ID, event.ActorID)
	require.Equal(t, link.ID, event.Link.ID)

	// Accepting twice is an invalid transition.
	_, err = fixture.service.Accept(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	linked, err := fixture.links.HasAcceptedLink(context.Background(), fixture.patient.ID, fixture.doctor.ID)
	require.NoError(t, err)
	require.True(t, linked)
}

func TestLinkServiceRejectDeletesAfterNotifying(t *testing.T) {
	fixture := setupLinkFixture(t)
	link := fixture.requestLink(t)

	require.NoError(t, fixture.service.Reject(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID))

	require.Len(t, fixture.dispatcher.events, 1)
	event := fixture.dispatcher.events[0]
	require.Equal(t, EventLinkRejected, event.Kind)
	require.Equal(t, link.ID, event.Link.ID, "snapshot taken before deletion")

	_, err := fixture.links.GetByID(context.Background(), link.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLinkServiceCancelOnlyForPendingOutbound(t *testing.T) {
	fixture := setupLinkFixture(t)
	link := fixture.requestLink(t)

	// The recipient cannot cancel, only reject.
	err := fixture.service.Cancel(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID)
	require.ErrorIs(t, err, ErrNotAuthorised)

	require.NoError(t, fixture.service.Cancel(context.Background(), Actor{ID: fixture.patient.ID}, link.ID))
	require.Len(t, fixture.dispatcher.events, 1)
	require.Equal(t, EventLinkCanceled, fixture.dispatcher.events[0].Kind)

	_, err = fixture.links.GetByID(context.Background(), link.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLinkServiceCancelRefusesAcceptedLink(t *testing.T) {
	fixture := setupLinkFixture(t)
	link := fixture.requestLink(t)

	_, err := fixture.service.Accept(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID)
	require.NoError(t, err)

	err = fixture.service.Cancel(context.Background(), Actor{ID: fixture.patient.ID}, link.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLinkServiceRemoveEndsRelationshipSilently(t *testing.T) {
	fixture := setupLinkFixture(t)
	link := fixture.requestLink(t)

	_, err := fixture.service.Accept(context.Background(), Actor{ID: fixture.doctor.ID}, link.ID)
	require.NoError(t, err)
	fixture.dispatcher.events = nil

	err = fixture.service.Remove(context.Background(), Actor{ID: 99}, link.ID)
	require.ErrorIs(t, err, ErrNotAuthorised)

	require.NoError(t, fixture.service.Remove(context.Background(), Actor{ID: fixture.patient.ID}, link.ID))
	require.Empty(t, fixture.dispatcher.events, "removal emits no event")

	linked, err := fixture.links.HasAcceptedLink(context.Background(), fixture.patient.ID, fixture.doctor.ID)
	require.NoError(t, err)
	require.False(t, linked)
}

func TestLinkServiceListsMineAndPending(t *testing.T) {
	fixture := setupLinkFixture(t)
	fixture.requestLink(t)

	pending, err := fixture.service.ListPending(context.Background(), Actor{ID: fixture.doctor.ID})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Nothing pending for the requester.
	none, err := fixture.service.ListPending(context.Background(), Actor{ID: fixture.patient.ID})
	require.NoError(t, err)
	require.Empty(t, none)

	mine, err := fixture.service.ListMine(context.Background(), Actor{ID: fixture.patient.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
}
