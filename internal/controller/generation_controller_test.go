package controller

import (
	"net/http"
	"testing"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerationApp(svc *fakeGenerationService, configured fiber.Handler) *fiber.App {
	app := fiber.New()
	NewGenerationController(svc).RegisterRoutes(app.Group("/api"), protected(), configured)
	return app
}

func TestBuildAndDebug(t *testing.T) {
	app := newGenerationApp(&fakeGenerationService{text: "<html></html>"}, passThrough)

	resp, raw := doJSON(t, app, http.MethodPost, "/api/build", dto.BuildRequest{Prompt: "a landing page"}, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html></html>", decode[serverutils.BaseResponse[dto.TextResultResponse]](t, raw).Data.Text)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/debug", dto.DebugRequest{Code: "x := 1"}, bearer(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "problem is required")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/build", dto.BuildRequest{Prompt: "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTextPanesBlockedWhenUnconfigured(t *testing.T) {
	blocked := serverutils.RequireConfigured(func() error {
		return apperror.Configuration("API_KEY environment variable not set.")
	})
	app := newGenerationApp(&fakeGenerationService{}, blocked)

	resp, raw := doJSON(t, app, http.MethodPost, "/api/build", dto.BuildRequest{Prompt: "x"}, bearer(t))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "API_KEY environment variable not set.", decode[serverutils.BaseResponse[any]](t, raw).Message)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/image", dto.ImageRequest{Prompt: "a cat"}, bearer(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode, "image pane has its own provider")
}

func TestImageConfigurationErrorIs503(t *testing.T) {
	svc := &fakeGenerationService{imageErr: apperror.Configuration("GOOGLE API key missing. Set GOOGLE_API_KEY or GEMINI_API_KEY.")}
	app := newGenerationApp(svc, passThrough)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/image", dto.ImageRequest{Prompt: "a cat"}, bearer(t))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
