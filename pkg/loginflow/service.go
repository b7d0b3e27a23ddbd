package loginflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harambee/welfare-idm/pkg/audit"
	idmerrors "github.com/harambee/welfare-idm/pkg/errors"
	"github.com/harambee/welfare-idm/pkg/login"
	"github.com/harambee/welfare-idm/pkg/otp"
	"github.com/harambee/welfare-idm/pkg/pendinglogin"
	"github.com/harambee/welfare-idm/pkg/sessions"
	"github.com/harambee/welfare-idm/pkg/settings"
	tg "github.com/harambee/welfare-idm/pkg/tokengenerator"
)

// Role that routes to the admin landing page after login
const AdminRole = "admin"

// Post-login destinations
const (
	AdminLandingPath  = "/admin/dashboard"
	MemberLandingPath = "/dashboard"
)

// ServiceDependencies holds all the services required by the login flow
type ServiceDependencies struct {
	LoginService    *login.LoginService
	OtpService      *otp.OtpService
	PendingLogins   pendinglogin.Store
	SessionService  *sessions.Service
	JwtService      *tg.JwtService
	SettingsService *settings.SettingsService
	Audit           *audit.Recorder
}

// LoginFlowService orchestrates the two-factor login state machine:
// credentials, then a one-time code, then an authenticated session. The
// pending-login store is the only record that credentials were verified;
// every step past the first gates on it.
type LoginFlowService struct {
	services *ServiceDependencies
}

// NewLoginFlowService creates a new login flow service
func NewLoginFlowService(services *ServiceDependencies) (*LoginFlowService, error) {
	if services == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if services.LoginService == nil {
		return nil, fmt.Errorf("login service is required")
	}
	if services.OtpService == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	if services.PendingLogins == nil {
		return nil, fmt.Errorf("pending login store is required")
	}
	if services.SessionService == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if services.JwtService == nil {
		return nil, fmt.Errorf("jwt service is required")
	}
	if services.Audit == nil {
		services.Audit = audit.NewRecorder()
	}
	return &LoginFlowService{services: services}, nil
}

// Request contains all the data needed for a login flow step
type Request struct {
	Email      string
	Password   string
	Remember   bool
	PendingKey string
	Code       string
	IPAddress  string
	UserAgent  string
}

// TokenValue is an issued token with its expiry
type TokenValue struct {
	Token  string
	Expiry time.Time
}

// Result contains the result of a login flow operation
type Result struct {
	Success       bool
	RequiresTwoFA bool
	PendingKey    string
	User          login.User
	Tokens        map[string]TokenValue
	RedirectTo    string
	ErrorResponse *Error
}

// Error represents a user-facing error from the login flow
type Error struct {
	Code    idmerrors.ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func failure(err error) Result {
	code := idmerrors.GetCode(err)
	msg := "Something went wrong. Please try again."
	var idmErr *idmerrors.Error
	if errors.As(err, &idmErr) && code != idmerrors.ErrCodeInternal {
		msg = idmErr.Message
	}
	return Result{ErrorResponse: &Error{Code: code, Message: msg}}
}

// ProcessLogin verifies credentials and either begins the two-factor step
// or, when two-factor is off for the user and system, finalizes directly.
func (s *LoginFlowService) ProcessLogin(ctx context.Context, request Request) Result {
	user, err := s.services.LoginService.Login(ctx, request.Email, request.Password)
	if err != nil {
		s.services.Audit.Record(ctx, audit.Event{
			Type:      audit.EventLoginFailed,
			Email:     request.Email,
			RequestIP: request.IPAddress,
			UserAgent: request.UserAgent,
		})
		return failure(err)
	}

	twoFactorOn := user.TwoFactorEnabled
	if twoFactorOn && s.services.SettingsService != nil {
		tf, err := s.services.SettingsService.TwoFactorSettings(ctx)
		if err != nil {
			slog.Error("Failed to load two-factor settings", "error", err)
			return failure(idmerrors.Internal("failed to load settings"))
		}
		twoFactorOn = tf.Enabled
	}

	if !twoFactorOn {
		return s.finalize(ctx, user, request)
	}

	key, err := pendinglogin.NewKey()
	if err != nil {
		slog.Error("Failed to create pending login key", "error", err)
		return failure(idmerrors.Internal("failed to begin login"))
	}

	err = s.services.PendingLogins.Begin(ctx, key, pendinglogin.PendingLogin{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		Remember: request.Remember,
	})
	if err != nil {
		slog.Error("Failed to begin pending login", "user_id", user.ID, "error", err)
		return failure(idmerrors.Internal("failed to begin login"))
	}

	if result := s.issueCode(ctx, user, request); result.ErrorResponse != nil {
		// keep the pending login; the user can request a resend
		result.RequiresTwoFA = true
		result.PendingKey = key
		return result
	}

	return Result{RequiresTwoFA: true, PendingKey: key}
}

// ProcessVerify checks the submitted code against the pending login and
// finalizes the session on success.
func (s *LoginFlowService) ProcessVerify(ctx context.Context, request Request) Result {
	pending, err := s.requirePending(ctx, request.PendingKey)
	if err != nil {
		return failure(err)
	}

	// the account may have been removed while the code was in flight
	user, err := s.services.LoginService.GetUser(ctx, pending.UserID)
	if err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeUserNotFound) {
			slog.Warn("Pending login user no longer exists", "user_id", pending.UserID)
			s.services.PendingLogins.Clear(ctx, request.PendingKey)
			return failure(idmerrors.SessionExpired())
		}
		return failure(err)
	}

	if err := s.services.OtpService.Verify(ctx, user.ID, request.Code); err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeInvalidOtp) {
			s.services.Audit.Record(ctx, audit.Event{
				Type:      audit.EventOtpVerifyFailed,
				UserID:    user.ID,
				Email:     user.Email,
				RequestIP: request.IPAddress,
				UserAgent: request.UserAgent,
			})
		}
		return failure(err)
	}

	request.Remember = pending.Remember
	result := s.finalize(ctx, user, request)
	if result.Success {
		if err := s.services.PendingLogins.Clear(ctx, request.PendingKey); err != nil {
			slog.Error("Failed to clear pending login", "user_id", user.ID, "error", err)
		}
	}
	return result
}

// ProcessResend issues a fresh code for the pending login, superseding any
// earlier one.
func (s *LoginFlowService) ProcessResend(ctx context.Context, request Request) Result {
	pending, err := s.requirePending(ctx, request.PendingKey)
	if err != nil {
		return failure(err)
	}

	user, err := s.services.LoginService.GetUser(ctx, pending.UserID)
	if err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeUserNotFound) {
			s.services.PendingLogins.Clear(ctx, request.PendingKey)
			return failure(idmerrors.SessionExpired())
		}
		return failure(err)
	}

	if result := s.issueCode(ctx, user, request); result.ErrorResponse != nil {
		return result
	}

	return Result{Success: true, RequiresTwoFA: true, PendingKey: request.PendingKey}
}

// Cancel abandons a pending login. Cancelling with no pending state is a
// no-op.
func (s *LoginFlowService) Cancel(ctx context.Context, request Request) Result {
	pending, err := s.services.PendingLogins.Get(ctx, request.PendingKey)
	if err == nil {
		s.services.Audit.Record(ctx, audit.Event{
			Type:      audit.EventLoginCancelled,
			UserID:    pending.UserID,
			Email:     pending.Email,
			RequestIP: request.IPAddress,
		})
	}

	if err := s.services.PendingLogins.Clear(ctx, request.PendingKey); err != nil {
		slog.Error("Failed to clear pending login", "error", err)
	}

	return Result{Success: true, RedirectTo: "/login"}
}

// HasPendingLogin reports whether the key holds a live pending login; the
// challenge page gates on this.
func (s *LoginFlowService) HasPendingLogin(ctx context.Context, key string) bool {
	_, err := s.services.PendingLogins.Get(ctx, key)
	return err == nil
}

func (s *LoginFlowService) requirePending(ctx context.Context, key string) (pendinglogin.PendingLogin, error) {
	if key == "" {
		return pendinglogin.PendingLogin{}, idmerrors.SessionExpired()
	}
	pending, err := s.services.PendingLogins.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pendinglogin.ErrNoPendingLogin) {
			return pendinglogin.PendingLogin{}, idmerrors.SessionExpired()
		}
		return pendinglogin.PendingLogin{}, fmt.Errorf("failed to load pending login: %w", err)
	}
	return pending, nil
}

func (s *LoginFlowService) issueCode(ctx context.Context, user login.User, request Request) Result {
	_, err := s.services.OtpService.Issue(ctx, otp.IssueParams{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		RequestIP: request.IPAddress,
		UserAgent: request.UserAgent,
	})
	if err != nil {
		if idmerrors.IsCode(err, idmerrors.ErrCodeRateLimited) {
			return failure(err)
		}
		slog.Error("Failed to issue login code", "user_id", user.ID, "error", err)
		return failure(idmerrors.New(idmerrors.ErrCodeDispatchFailure, "could not send the code, please try again"))
	}

	s.services.Audit.Record(ctx, audit.Event{
		Type:      audit.EventOtpIssued,
		UserID:    user.ID,
		Email:     user.Email,
		RequestIP: request.IPAddress,
		UserAgent: request.UserAgent,
	})

	return Result{}
}

// finalize establishes the authenticated session: last-login stamp, audit
// event, session record and JWT tokens, and the role-based destination.
func (s *LoginFlowService) finalize(ctx context.Context, user login.User, request Request) Result {
	now := time.Now().UTC()
	if err := s.services.LoginService.RecordLogin(ctx, user.ID, now); err != nil {
		slog.Error("Failed to record login time", "user_id", user.ID, "error", err)
	}

	tokens, err := s.issueTokens(ctx, user, request)
	if err != nil {
		slog.Error("Failed to issue tokens", "user_id", user.ID, "error", err)
		return failure(idmerrors.Internal("failed to create session"))
	}

	s.services.Audit.Record(ctx, audit.Event{
		Type:      audit.EventLoginSucceeded,
		UserID:    user.ID,
		Email:     user.Email,
		RequestIP: request.IPAddress,
		UserAgent: request.UserAgent,
	})

	redirect := MemberLandingPath
	if user.Role == AdminRole {
		redirect = AdminLandingPath
	}

	return Result{
		Success:    true,
		User:       user,
		Tokens:     tokens,
		RedirectTo: redirect,
	}
}

func (s *LoginFlowService) issueTokens(ctx context.Context, user login.User, request Request) (map[string]TokenValue, error) {
	claims := map[string]interface{}{
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	}

	accessToken, accessExpiry, err := s.services.JwtService.GenerateToken(tg.ACCESS_TOKEN_NAME, user.ID.String(), claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiry, err := s.services.JwtService.GenerateToken(tg.REFRESH_TOKEN_NAME, user.ID.String(), claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	// the session record is keyed by the access token's JTI; a fresh
	// session re-arms the idle timeout
	jti, err := s.services.JwtService.TokenJTI(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to extract jti: %w", err)
	}
	_, err = s.services.SessionService.CreateSession(ctx, sessions.CreateSessionRequest{
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExpiry,
		IPAddress: request.IPAddress,
		UserAgent: request.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return map[string]TokenValue{
		tg.ACCESS_TOKEN_NAME:  {Token: accessToken, Expiry: accessExpiry},
		tg.REFRESH_TOKEN_NAME: {Token: refreshToken, Expiry: refreshExpiry},
	}, nil
}
