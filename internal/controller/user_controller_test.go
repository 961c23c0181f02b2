package controller

import (
	"net/http"
	"testing"

	"codepilot-be/internal/dto"
	"codepilot-be/internal/pkg/serverutils"
	"codepilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserApp(users *fakeUserService, prefs *fakePreferenceService) *fiber.App {
	app := fiber.New()
	NewUserController(users, prefs).RegisterRoutes(app.Group("/api"), protected())
	return app
}

func TestGetProfile(t *testing.T) {
	profile := &dto.UserDTO{Id: testUserID, Name: "Ada", Email: "ada@example.com"}
	app := newUserApp(&fakeUserService{profile: profile}, &fakePreferenceService{})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/user/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodGet, "/api/user/profile", nil, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[serverutils.BaseResponse[dto.UserDTO]](t, raw)
	assert.True(t, body.Success)
	assert.Equal(t, *profile, body.Data)
}

func TestUpdateProfileValidation(t *testing.T) {
	app := newUserApp(&fakeUserService{}, &fakePreferenceService{})

	resp, _ := doJSON(t, app, http.MethodPut, "/api/user/profile",
		dto.UpdateProfileRequest{Name: "Ada", Email: "not-an-email"}, bearer(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPut, "/api/user/profile",
		dto.UpdateProfileRequest{Name: "Ada L", Email: "ada@example.com"}, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[serverutils.BaseResponse[dto.UserDTO]](t, raw)
	assert.Equal(t, "Ada L", body.Data.Name)
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"success", nil, http.StatusOK, "Password updated successfully!"},
		{"mismatch", service.ErrNewPasswordMismatch, http.StatusBadRequest, "New passwords do not match."},
		{"wrong current", service.ErrWrongCurrentPassword, http.StatusBadRequest, "Incorrect current password."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newUserApp(&fakeUserService{passwordErr: tt.err}, &fakePreferenceService{})
			resp, raw := doJSON(t, app, http.MethodPut, "/api/user/password", dto.ChangePasswordRequest{
				CurrentPassword:    "old",
				NewPassword:        "new",
				ConfirmNewPassword: "new",
			}, bearer(t))

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, decode[serverutils.BaseResponse[any]](t, raw).Message)
		})
	}
}

func TestPreferences(t *testing.T) {
	prefs := &fakePreferenceService{}
	app := newUserApp(&fakeUserService{}, prefs)

	resp, raw := doJSON(t, app, http.MethodGet, "/api/user/preferences", nil, bearer(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dark", decode[serverutils.BaseResponse[dto.PreferencesDTO]](t, raw).Data.Theme)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/user/preferences", dto.PreferencesDTO{Theme: "blue"}, bearer(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, prefs.theme)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/user/preferences", dto.PreferencesDTO{Theme: "light"}, bearer(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "light", prefs.theme)
}

func TestDeleteAccount(t *testing.T) {
	users := &fakeUserService{}
	app := newUserApp(users, &fakePreferenceService{})

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/user/account", nil, bearer(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testUserID, users.deleted[0])
}
