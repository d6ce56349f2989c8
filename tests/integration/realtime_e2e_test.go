package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/config"
	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/handler"
	"github.com/medico-project/medico-go-api/internal/middleware"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
	"github.com/medico-project/medico-go-api/internal/router"
	"github.com/medico-project/medico-go-api/internal/service"
)

const testJWTSecret = "integration-secret"

type realtimeEnv struct {
	baseURL string
	wsURL   string
	db      *gorm.DB
	links   *service.LinkService
	patient models.User
	doctor  models.User
}

func signToken(t *testing.T, user models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func setupRealtimeEnv(t *testing.T) realtimeEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Thread{}, &models.Message{}, &models.UserLink{}, &models.Appointment{}, &models.Article{}))

	patient := models.User{Username: "patient", Role: models.RolePatient}
	doctor := models.User{Username: "doctor", Role: models.RoleDoctor}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&doctor).Error)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	broker := service.NewRoomBroker(nil, "", nil, logger)
	guard := service.NewAccessGuard(linkRepo, logger)
	dispatcher := service.NewEventDispatcher(broker, logger)

	chatService := service.NewChatService(threadRepo, messageRepo, guard, broker, validate, time.Minute, logger)
	notificationService := service.NewNotificationService(guard, broker, time.Minute, logger)
	threadService := service.NewThreadService(threadRepo, messageRepo, linkRepo, userRepo, validate, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, dispatcher, validate, logger)
	linkService := service.NewLinkService(linkRepo, userRepo, dispatcher, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "medico-test", JWTSecret: testJWTSecret}, router.Dependencies{
		ChatHandler:         handler.NewChatHandler(chatService, validate, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		ThreadHandler:       handler.NewThreadHandler(threadService, logger),
		AppointmentHandler:  handler.NewAppointmentHandler(appointmentService, logger),
		LinkHandler:         handler.NewLinkHandler(linkService, logger),
		JWTMiddleware:       middleware.JWTProtected(testJWTSecret, userRepo),
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	addr := listener.Addr().String()

	return realtimeEnv{
		baseURL: "http://" + addr,
		wsURL:   "ws://" + addr,
		db:      db,
		links:   linkService,
		patient: patient,
		doctor:  doctor,
	}
}

func (env realtimeEnv) linkUsers(t *testing.T) {
	t.Helper()
	link := models.UserLink{FromUserID: env.patient.ID, ToUserID: env.doctor.ID, LinkType: models.LinkTypeDoctorPatient, Status: models.LinkStatusAccepted}
	require.NoError(t, env.db.Create(&link).Error)
}

func (env realtimeEnv) createThread(t *testing.T) models.Thread {
	t.Helper()
	thread := models.Thread{Participants: []models.User{env.patient, env.doctor}}
	require.NoError(t, env.db.Omit("Participants.*").Create(&thread).Error)
	return thread
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn
}

func readPayload[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var payload T
	require.NoError(t, json.Unmarshal(raw, &payload))
	return payload
}

func TestChatMessageReachesBothParticipants(t *testing.T) {
	env := setupRealtimeEnv(t)
	env.linkUsers(t)
	thread := env.createThread(t)

	patientConn := dialWS(t, fmt.Sprintf("%s/api/ws/chat/%d?token=%s", env.wsURL, thread.ID, signToken(t, env.patient)))
	defer patientConn.Close()
	doctorConn := dialWS(t, fmt.Sprintf("%s/api/ws/chat/%d?token=%s", env.wsURL, thread.ID, signToken(t, env.doctor)))
	defer doctorConn.Close()

	// Give both sessions a moment to register with the room.
	time.Sleep(100 * time.Millisecond)

	frame := map[string]any{"message": "hello doctor", "tempId": "t-1"}
	require.NoError(t, patientConn.WriteJSON(frame))

	forPatient := readPayload[dto.ChatMessagePayload](t, patientConn)
	require.Equal(t, "hello doctor", forPatient.Message)
	require.JSONEq(t, `"t-1"`, string(forPatient.TempID))
	require.Equal(t, env.patient.ID, forPatient.SenderID)

	forDoctor := readPayload[dto.ChatMessagePayload](t, doctorConn)
	require.Equal(t, "hello doctor", forDoctor.Message)
	require.Contains(t, forDoctor.ReadBy, env.patient.ID)
}

func TestChatHandshakeRejectedWithoutAcceptedLink(t *testing.T) {
	env := setupRealtimeEnv(t)
	thread := env.createThread(t)

	// Participants without an accepted link connect, then get closed without
	// receiving any payload.
	conn := dialWS(t, fmt.Sprintf("%s/api/ws/chat/%d?token=%s", env.wsURL, thread.ID, signToken(t, env.patient)))
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server should close the connection")
}

func TestChatHandshakeRequiresToken(t *testing.T) {
	env := setupRealtimeEnv(t)
	thread := env.createThread(t)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	_, resp, err := dialer.Dial(fmt.Sprintf("%s/api/ws/chat/%d", env.wsURL, thread.ID), nil)
	require.Error(t, err)
	if resp != nil {
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestHandshakeRejectedForDeletedUser(t *testing.T) {
	env := setupRealtimeEnv(t)

	// Validly signed token whose subject has no row in the user store.
	ghost := models.User{ID: 9999, Username: "ghost", Role: models.RolePatient}
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	_, resp, err := dialer.Dial(fmt.Sprintf("%s/api/ws/appointments?token=%s", env.wsURL, signToken(t, ghost)), nil)
	require.Error(t, err)
	if resp != nil {
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestAppointmentChannelRejectsForeignOwnerSegment(t *testing.T) {
	env := setupRealtimeEnv(t)

	// The path segment names another user's channel; the socket is closed
	// without any payload.
	conn := dialWS(t, fmt.Sprintf("%s/api/ws/appointments/%d?token=%s", env.wsURL, env.doctor.ID, signToken(t, env.patient)))
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server should close the connection without a greeting")
}

func TestLinkAcceptanceNotifiesRequesterChannel(t *testing.T) {
	env := setupRealtimeEnv(t)

	conn := dialWS(t, fmt.Sprintf("%s/api/ws/links?token=%s", env.wsURL, signToken(t, env.patient)))
	defer conn.Close()
	time.Sleep(100 * time.Millisecond)

	link, err := env.links.Request(context.Background(), service.Actor{ID: env.patient.ID, Role: models.RolePatient}, dto.LinkCreateRequest{
		ToUserID: env.doctor.ID,
		LinkType: models.LinkTypeDoctorPatient,
	})
	require.NoError(t, err)

	_, err = env.links.Accept(context.Background(), service.Actor{ID: env.doctor.ID, Role: models.RoleDoctor}, link.ID)
	require.NoError(t, err)

	event := readPayload[dto.LinkEventPayload](t, conn)
	require.Equal(t, "request_accepted", event.Event)
	require.Equal(t, link.ID, event.Link.ID)
}

func TestPatientConfirmsRescheduleOverAPI(t *testing.T) {
	env := setupRealtimeEnv(t)

	appointment := models.Appointment{
		PatientID:     env.patient.ID,
		DoctorID:      &env.doctor.ID,
		ScheduledDate: time.Now().Add(24 * time.Hour),
		Status:        models.AppointmentStatusPending,
	}
	require.NoError(t, env.db.Create(&appointment).Error)

	patch := func(path, token, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPatch, env.baseURL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// The patient cannot propose; only the assigned doctor may.
	body := fmt.Sprintf(`{"scheduled_date":%q}`, time.Now().Add(72*time.Hour).Format(time.RFC3339))
	resp := patch(fmt.Sprintf("/api/appointments/%d/reschedule", appointment.ID), signToken(t, env.patient), body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = patch(fmt.Sprintf("/api/appointments/%d/reschedule", appointment.ID), signToken(t, env.doctor), body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = patch(fmt.Sprintf("/api/appointments/%d/confirm", appointment.ID), signToken(t, env.patient), `{"decision":"accept"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool                    `json:"success"`
		Data    dto.AppointmentResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	resp.Body.Close()
	require.True(t, envelope.Success)
	require.Equal(t, models.AppointmentStatusAccepted, envelope.Data.Status)
}

func TestAppointmentChannelGreetsAndDeliversEvents(t *testing.T) {
	env := setupRealtimeEnv(t)

	conn := dialWS(t, fmt.Sprintf("%s/api/ws/appointments?token=%s", env.wsURL, signToken(t, env.patient)))
	defer conn.Close()

	greeting := readPayload[map[string]string](t, conn)
	require.Contains(t, greeting["message"], "Connected to appointment notifications")

	token := signToken(t, env.patient)
	body := fmt.Sprintf(`{"doctor":%d,"scheduled_date":%q,"reason":"checkup"}`, env.doctor.ID, time.Now().Add(24*time.Hour).Format(time.RFC3339))
	request, err := http.NewRequest(http.MethodPost, env.baseURL+"/api/appointments", strings.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusCreated, response.StatusCode)

	event := readPayload[dto.AppointmentEventPayload](t, conn)
	require.Equal(t, "appointment_created", event.Event)
	require.Equal(t, "patient", event.Target)
	require.Equal(t, env.patient.ID, event.Appointment.PatientID)
}
