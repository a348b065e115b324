package service

import (
	"context"
	"strings"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"
	"vigil/internal/utils"

	"github.com/google/uuid"
)

const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

// AuthService owns the authentication flow that feeds the audit
// pipeline. Recording and detection run synchronously in the request
// path but are strictly best-effort: neither can change the
// success/failure outcome of an authentication attempt.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	mfaSecrets repository.MFASecretRepository

	recorder     *Recorder
	detection    *Engine
	passwordHash PasswordHasher
	accessTokens AccessTokenIssuer
	mfaTokens    MFATokenIssuer
	mfaProvider  MFAProvider
	clock        Clock
	config       AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	mfaSecrets repository.MFASecretRepository,
	recorder *Recorder,
	detection *Engine,
	passwordHash PasswordHasher,
	accessTokens AccessTokenIssuer,
	mfaTokens MFATokenIssuer,
	mfaProvider MFAProvider,
	clock Clock,
	config AuthConfig,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		mfaSecrets:   mfaSecrets,
		recorder:     recorder,
		detection:    detection,
		passwordHash: passwordHash,
		accessTokens: accessTokens,
		mfaTokens:    mfaTokens,
		mfaProvider:  mfaProvider,
		clock:        clock,
		config:       config,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user != nil {
		return ErrEmailAlreadyRegistered
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return err
	}

	newUser := &entity.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: &hash,
		Role:         entity.UserRoleUser,
		IsActive:     true,
	}
	return s.users.Create(ctx, newUser)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" || strings.TrimSpace(input.DeviceID) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		s.audit(ctx, nil, entity.EventLoginFailure, input.IPAddress, input.UserAgent,
			map[string]any{"email": email, "reason": "unknown_account"})
		return nil, ErrInvalidCredentials
	}

	if !s.passwordHash.Verify(*user.PasswordHash, input.Password) {
		s.audit(ctx, &user.ID, entity.EventLoginFailure, input.IPAddress, input.UserAgent,
			map[string]any{"email": email, "reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}

	if s.mfaProvider != nil && s.mfaSecrets != nil && s.mfaTokens != nil {
		secret, err := s.mfaSecrets.FindByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if secret != nil && secret.EnabledAt != nil {
			mfaToken, expiresIn, err := s.mfaTokens.IssueMFAToken(user.ID)
			if err != nil {
				return nil, err
			}
			s.audit(ctx, &user.ID, entity.EventMFAChallenge, input.IPAddress, input.UserAgent,
				map[string]any{"device_id": input.DeviceID})
			return &LoginResult{
				MFARequired:       true,
				MFAToken:          mfaToken,
				MFATokenExpiresIn: int64(expiresIn.Seconds()),
			}, nil
		}
	}

	result, err := s.createSessionAndToken(ctx, user, input.DeviceID, input.DeviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, entity.EventLoginSuccess, input.IPAddress, input.UserAgent,
		map[string]any{"device_id": input.DeviceID})
	return result, nil
}

func (s *AuthService) LoginWithMFA(ctx context.Context, input LoginMFAInput) (*LoginResult, error) {
	if s.mfaProvider == nil || s.mfaTokens == nil || s.mfaSecrets == nil {
		return nil, ErrMFANotConfigured
	}
	if strings.TrimSpace(input.MFAToken) == "" || strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.DeviceID) == "" {
		return nil, ErrInvalidInput
	}
	userID, err := s.mfaTokens.ParseMFAToken(input.MFAToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	secret, err := s.mfaSecrets.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.EnabledAt == nil {
		return nil, ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, input.Code) {
		s.audit(ctx, &user.ID, entity.EventMFAFailure, input.IPAddress, input.UserAgent,
			map[string]any{"device_id": input.DeviceID})
		return nil, ErrInvalidMFACode
	}

	result, err := s.createSessionAndToken(ctx, user, input.DeviceID, input.DeviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, &user.ID, entity.EventMFASuccess, input.IPAddress, input.UserAgent,
		map[string]any{"device_id": input.DeviceID})
	return result, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.audit(ctx, userID, entity.EventLogout, ipAddress, nil, nil)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string, ipAddress *string) error {
	if strings.TrimSpace(currentPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.PasswordHash == nil || !s.passwordHash.Verify(*user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = &hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	_ = s.sessions.RevokeAllByUser(ctx, user.ID)
	s.audit(ctx, &user.ID, entity.EventPasswordChange, ipAddress, nil, nil)
	return nil
}

func (s *AuthService) EnableMFA(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.mfaProvider == nil || s.mfaSecrets == nil {
		return "", ErrMFANotConfigured
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	secret, err := s.mfaProvider.GenerateSecret()
	if err != nil {
		return "", err
	}

	mfaSecret := &entity.MFASecret{
		UserID:    user.ID,
		Secret:    secret,
		EnabledAt: nil,
	}
	if err := s.mfaSecrets.Upsert(ctx, mfaSecret); err != nil {
		return "", err
	}

	issuer := s.config.MFAIssuer
	if strings.TrimSpace(issuer) == "" {
		issuer = "Vigil"
	}
	return s.mfaProvider.QRCodeURL(user.Email, issuer, secret)
}

func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if s.mfaProvider == nil || s.mfaSecrets == nil {
		return ErrMFANotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}
	secret, err := s.mfaSecrets.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if secret == nil {
		return ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, code) {
		return ErrInvalidMFACode
	}

	now := s.now()
	secret.EnabledAt = &now
	return s.mfaSecrets.Upsert(ctx, secret)
}

func (s *AuthService) DisableMFA(ctx context.Context, userID uuid.UUID) error {
	if s.mfaSecrets == nil {
		return nil
	}
	return s.mfaSecrets.Disable(ctx, userID)
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) createSessionAndToken(
	ctx context.Context,
	user *entity.User,
	deviceID string,
	deviceName string,
	ipAddress *string,
	userAgent *string,
) (*LoginResult, error) {
	session := &entity.Session{
		UserID:     user.ID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  s.now().Add(s.sessionTTL()),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(expiresIn.Seconds()),
	}, nil
}

// audit persists one event and runs detection over it. Both halves are
// best-effort side channels of the auth flow.
func (s *AuthService) audit(
	ctx context.Context,
	userID *uuid.UUID,
	eventType entity.AuditEventType,
	ipAddress *string,
	userAgent *string,
	metadata map[string]any,
) {
	if s.recorder == nil {
		return
	}
	event := s.recorder.RecordBestEffort(ctx, RecordInput{
		UserID:    userID,
		EventType: eventType,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Metadata:  metadata,
	})
	if event != nil && s.detection != nil {
		s.detection.Evaluate(ctx, event)
	}
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AuthService) sessionTTL() time.Duration {
	if s.config.SessionTTL > 0 {
		return s.config.SessionTTL
	}
	return 30 * 24 * time.Hour
}
