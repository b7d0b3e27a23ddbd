package api

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// VerifyRequest is the body of POST /auth/2fa/verify
type VerifyRequest struct {
	Code string `json:"code"`
}

// FlowResponse is the JSON shape every auth endpoint replies with
type FlowResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Status values for FlowResponse
const (
	StatusSuccess           = "success"
	StatusTwoFactorRequired = "2fa_required"
	StatusError             = "error"
)
