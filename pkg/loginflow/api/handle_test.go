package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harambee/welfare-idm/pkg/login"
	"github.com/harambee/welfare-idm/pkg/loginflow"
	"github.com/harambee/welfare-idm/pkg/notification"
	"github.com/harambee/welfare-idm/pkg/otp"
	"github.com/harambee/welfare-idm/pkg/pendinglogin"
	"github.com/harambee/welfare-idm/pkg/sessions"
	tg "github.com/harambee/welfare-idm/pkg/tokengenerator"
)

const testPassword = "correct horse battery staple"

type apiEnv struct {
	router *chi.Mux
	mock   *notification.MockNotifier
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, mock),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	loginRepo := login.NewInMemLoginRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	loginRepo.AddUser(login.User{
		ID:               uuid.New(),
		Email:            "member@example.com",
		Name:             "Test Member",
		PasswordHash:     string(hash),
		Role:             "member",
		TwoFactorEnabled: true,
	})

	jwtGen := tg.NewJwtTokenGenerator("test-secret-at-least-32-bytes-long!", "welfare-idm", "welfare-idm")
	jwtService := tg.NewJwtService(jwtGen)

	flow, err := loginflow.NewLoginFlowService(&loginflow.ServiceDependencies{
		LoginService:   login.NewLoginService(loginRepo),
		OtpService:     otp.NewOtpService(otp.NewInMemoryOtpRepository(), nm),
		PendingLogins:  pendinglogin.NewInMemoryStore(),
		SessionService: sessions.NewService(sessions.NewInMemoryRepository()),
		JwtService:     jwtService,
	})
	require.NoError(t, err)

	handle := NewHandle(flow, jwtService, WithCookieSecure(false))
	router := chi.NewRouter()
	handle.Routes(router)

	return &apiEnv{router: router, mock: mock}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, e.mock.SentNotifications)
	return e.mock.SentNotifications[len(e.mock.SentNotifications)-1].Data["Code"]
}

func decodeFlowResponse(t *testing.T, w *httptest.ResponseRecorder) FlowResponse {
	t.Helper()
	var resp FlowResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func pendingCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultPendingCookieName && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}

func TestPostLogin_StartsChallenge(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: testPassword,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeFlowResponse(t, w)
	assert.Equal(t, StatusTwoFactorRequired, resp.Status)

	cookie := pendingCookie(w)
	require.NotNil(t, cookie, "pending cookie must be set")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestPostLogin_BadCredentials(t *testing.T) {
	env := newAPIEnv(t)

	wrongPassword := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: "wrong",
	}, nil)
	unknownEmail := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "nobody@example.com", Password: testPassword,
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	// identical body for both failure causes
	assert.Equal(t, decodeFlowResponse(t, wrongPassword), decodeFlowResponse(t, unknownEmail))
}

func TestPostLogin_MissingFields(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, "POST", "/auth/login", LoginRequest{Email: "member@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFullFlowOverHTTP(t *testing.T) {
	env := newAPIEnv(t)

	loginResp := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, loginResp.Code)
	cookie := pendingCookie(loginResp)
	require.NotNil(t, cookie)

	// challenge page is reachable with the pending cookie
	challengeResp := env.do(t, "GET", "/auth/2fa", nil, []*http.Cookie{cookie})
	assert.Equal(t, http.StatusOK, challengeResp.Code)

	verifyResp := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: env.lastCode(t)}, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, verifyResp.Code)

	resp := decodeFlowResponse(t, verifyResp)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, loginflow.MemberLandingPath, resp.RedirectTo)

	var names []string
	for _, c := range verifyResp.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, tg.ACCESS_TOKEN_NAME)
	assert.Contains(t, names, tg.REFRESH_TOKEN_NAME)
}

func TestGetChallenge_WithoutPendingRedirects(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, "GET", "/auth/2fa", nil, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestPostVerify_WithoutPendingLogin(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: "123456"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostVerify_WrongCode(t *testing.T) {
	env := newAPIEnv(t)

	loginResp := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: testPassword,
	}, nil)
	cookie := pendingCookie(loginResp)
	require.NotNil(t, cookie)

	code := env.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	w := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: wrong}, []*http.Cookie{cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// pending state survives a wrong code
	retry := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: code}, []*http.Cookie{cookie})
	assert.Equal(t, http.StatusOK, retry.Code)
}

func TestPostResend(t *testing.T) {
	env := newAPIEnv(t)

	loginResp := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: testPassword,
	}, nil)
	cookie := pendingCookie(loginResp)
	require.NotNil(t, cookie)

	w := env.do(t, "POST", "/auth/2fa/resend", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.mock.SentNotifications, 2)

	// only the resent code verifies
	verify := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: env.lastCode(t)}, []*http.Cookie{cookie})
	assert.Equal(t, http.StatusOK, verify.Code)
}

func TestPostCancel(t *testing.T) {
	env := newAPIEnv(t)

	loginResp := env.do(t, "POST", "/auth/login", LoginRequest{
		Email: "member@example.com", Password: testPassword,
	}, nil)
	cookie := pendingCookie(loginResp)
	require.NotNil(t, cookie)

	cancelResp := env.do(t, "POST", "/auth/2fa/cancel", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, cancelResp.Code)
	resp := decodeFlowResponse(t, cancelResp)
	assert.Equal(t, "/login", resp.RedirectTo)

	// the pending login is gone
	w := env.do(t, "POST", "/auth/2fa/verify", VerifyRequest{Code: env.lastCode(t)}, []*http.Cookie{cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
