package service

import (
	"context"
	"testing"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubTokenIssuer struct{}

func (stubTokenIssuer) IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error) {
	return "token-" + sessionID.String(), time.Hour, nil
}

type authFixture struct {
	*fixture
	auth     *AuthService
	sessions repository.SessionRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := newFixture(t)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	events := f.events
	alertSvc := NewAlertService(f.alerts, events, nil, RealClock{}, log)
	engine := NewEngine(alertSvc, log, NewBruteForceRule(events, RealClock{}))
	sessions := repository.NewSessionRepository(f.db)

	auth := NewAuthService(
		f.users,
		sessions,
		repository.NewMFASecretRepository(f.db),
		NewRecorder(events, log),
		engine,
		BcryptPasswordHasher{Cost: bcrypt.MinCost},
		stubTokenIssuer{},
		nil,
		nil,
		RealClock{},
		AuthConfig{},
	)
	return &authFixture{fixture: f, auth: auth, sessions: sessions}
}

func (f *authFixture) register(t *testing.T, email, password string) *entity.User {
	t.Helper()
	require.NoError(t, f.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	}))
	user, err := f.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func (f *authFixture) eventsOfType(t *testing.T, eventType entity.AuditEventType) []entity.AuditEvent {
	t.Helper()
	var events []entity.AuditEvent
	require.NoError(t, f.db.Where("event_type = ?", eventType).Find(&events).Error)
	return events
}

func TestLoginRecordsSuccessEvent(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "login@example.com", "hunter2hunter2")

	result, err := f.auth.Login(context.Background(), LoginInput{
		Email:     "login@example.com",
		Password:  "hunter2hunter2",
		DeviceID:  "device-1",
		IPAddress: strPtr("10.0.0.9"),
	})
	require.NoError(t, err)
	assert.False(t, result.MFARequired)
	assert.NotEmpty(t, result.AccessToken)

	events := f.eventsOfType(t, entity.EventLoginSuccess)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, user.ID, *events[0].UserID)
	assert.Equal(t, "10.0.0.9", *events[0].IPAddress)
}

func TestLoginUnknownAccountRecordsAnonymousFailure(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever",
		DeviceID: "device-1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	events := f.eventsOfType(t, entity.EventLoginFailure)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UserID)
	assert.Contains(t, string(events[0].Metadata), "ghost@example.com")
	assert.Contains(t, string(events[0].Metadata), "unknown_account")
}

func TestLoginBadPasswordRecordsScopedFailure(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "victim@example.com", "correct-horse")

	_, err := f.auth.Login(context.Background(), LoginInput{
		Email:    "victim@example.com",
		Password: "wrong",
		DeviceID: "device-1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	events := f.eventsOfType(t, entity.EventLoginFailure)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, user.ID, *events[0].UserID)
	assert.Contains(t, string(events[0].Metadata), "bad_password")
}

func TestRepeatedFailuresRaiseBruteForceAlert(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "target@example.com", "correct-horse")

	for i := 0; i < 5; i++ {
		_, err := f.auth.Login(context.Background(), LoginInput{
			Email:     "target@example.com",
			Password:  "wrong",
			DeviceID:  "device-1",
			IPAddress: strPtr("203.0.113.7"),
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	var alerts []entity.Alert
	require.NoError(t, f.db.Where("type = ?", entity.AlertBruteForce).Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, entity.AlertOpen, alerts[0].Status)
	assert.Contains(t, alerts[0].Description, "target@example.com")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "dup@example.com", "some-password")

	err := f.auth.Register(context.Background(), RegisterInput{
		Email:    "Dup@Example.com",
		Password: "other-password",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestLogoutRevokesSessionAndRecordsEvent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "bye@example.com", "some-password")

	_, err := f.auth.Login(ctx, LoginInput{
		Email:    "bye@example.com",
		Password: "some-password",
		DeviceID: "device-1",
	})
	require.NoError(t, err)

	var session entity.Session
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&session).Error)
	active, err := f.sessions.FindActive(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, active)

	require.NoError(t, f.auth.Logout(ctx, session.ID, &user.ID, nil))

	active, err = f.sessions.FindActive(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Len(t, f.eventsOfType(t, entity.EventLogout), 1)
}

func TestChangePasswordRevokesSessionsAndRecordsEvent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "rotate@example.com", "old-password")

	_, err := f.auth.Login(ctx, LoginInput{
		Email:    "rotate@example.com",
		Password: "old-password",
		DeviceID: "device-1",
	})
	require.NoError(t, err)

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, "old-password", "new-password", nil))

	var session entity.Session
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&session).Error)
	assert.NotNil(t, session.RevokedAt)
	assert.Len(t, f.eventsOfType(t, entity.EventPasswordChange), 1)

	err = f.auth.ChangePassword(ctx, user.ID, "old-password", "again", nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, "new-password", "newer-password", nil))
}

func TestLoginWithMFAUnconfigured(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.LoginWithMFA(context.Background(), LoginMFAInput{
		MFAToken: "anything",
		Code:     "123456",
		DeviceID: "device-1",
	})
	assert.ErrorIs(t, err, ErrMFANotConfigured)
}
