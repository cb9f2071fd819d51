package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/pkg/session"
)

type Handler struct {
	Repo *UserRepo
	JWT  *JWT
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type loginInput struct {
	Body loginBody
}

type loginOutput struct {
	Body tokenResponse
}

// Register adds the public login route.
func Register(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/v1/auth/login",
		Summary:     "Login",
		Tags:        []string{"Auth"},
	}, h.login)
}

// RegisterRefresh adds the refresh route. It must be registered behind
// Middleware.
func RegisterRefresh(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/v1/auth/refresh",
		Summary:     "Refresh token",
		Tags:        []string{"Auth"},
	}, h.refresh)
}

func (h *Handler) issue(u *User) (*loginOutput, error) {
	tok, exp, err := h.JWT.Generate(u)
	if err != nil {
		return nil, err
	}
	return &loginOutput{Body: tokenResponse{AccessToken: tok, ExpiresAt: exp}}, nil
}

func (h *Handler) login(ctx context.Context, in *loginInput) (*loginOutput, error) {
	u, err := h.Repo.Authenticate(ctx, in.Body.Username, in.Body.Password)
	if err != nil {
		logger.L.Error("login lookup", "user", in.Body.Username, "err", err)
		return nil, huma.Error500InternalServerError("login failed")
	}
	if u == nil {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}
	return h.issue(u)
}

type refreshInput struct{}

func (h *Handler) refresh(ctx context.Context, _ *refreshInput) (*loginOutput, error) {
	sess := session.FromContext(ctx)
	if sess.Anonymous() {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	u, err := h.Repo.GetByUsername(ctx, sess.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	return h.issue(u)
}
