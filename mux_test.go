package authkit_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authkit "github.com/sandunsrimal/authkit"
)

func newTestService() (*authkit.Service, *authkit.SessionManager, *recordingEmailSender) {
	sessions, store, sender := newTestSessions()
	service := &authkit.Service{
		Sessions:    sessions,
		Reconciler:  &authkit.Reconciler{Accounts: store},
		FrontendURL: "http://localhost:3000",
	}
	return service, sessions, sender
}

func postJSON(t *testing.T, handler http.Handler, path string, body map[string]any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return w, decoded
}

func TestRegisterEndpoint(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	w, body := postJSON(t, handler, "/register", map[string]any{
		"email":    "user@example.com",
		"password": "Valid123!",
		"name":     "Test User",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\n%s", w.Code, w.Body.String())
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	data, _ := body["data"].(map[string]any)
	if data == nil || data["accessToken"] == "" || data["refreshToken"] == "" {
		t.Errorf("missing tokens in response: %v", body)
	}
	if data["isEmailVerified"] != false {
		t.Errorf("isEmailVerified = %v", data["isEmailVerified"])
	}

	// Duplicate registration conflicts.
	w, _ = postJSON(t, handler, "/register", map[string]any{
		"email":    "user@example.com",
		"password": "Valid123!",
		"name":     "Another",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	w, body := postJSON(t, handler, "/register", map[string]any{
		"email":    "user@example.com",
		"password": "weak",
		"name":     "Test User",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if body["code"] != "weak_password" {
		t.Errorf("code = %v, want weak_password", body["code"])
	}
	if body["field"] != "password" {
		t.Errorf("field = %v", body["field"])
	}
}

func TestLoginEndpointUniformError(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)

	wUnknown, bodyUnknown := postJSON(t, handler, "/login", map[string]any{
		"email": "nobody@example.com", "password": "Valid123!",
	}, nil)
	wWrong, bodyWrong := postJSON(t, handler, "/login", map[string]any{
		"email": "user@example.com", "password": "Wrong123!",
	}, nil)

	if wUnknown.Code != http.StatusUnauthorized || wWrong.Code != http.StatusUnauthorized {
		t.Errorf("statuses = %d, %d, want 401", wUnknown.Code, wWrong.Code)
	}
	if bodyUnknown["message"] != bodyWrong["message"] {
		t.Errorf("messages differ: %v vs %v", bodyUnknown["message"], bodyWrong["message"])
	}
	if bodyWrong["message"] != "Invalid credentials" {
		t.Errorf("message = %v", bodyWrong["message"])
	}
}

func TestMeRequiresAuth(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	req := httptest.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	_, body := postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "Test User",
	}, nil)
	data := body["data"].(map[string]any)
	access := data["accessToken"].(string)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d\n%s", w.Code, w.Body.String())
	}

	var me struct {
		Data struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.Data.Email != "user@example.com" || me.Data.Name != "Test User" {
		t.Errorf("profile = %+v", me.Data)
	}
}

func TestExpiredAccessTokenIsFlagged(t *testing.T) {
	service, sessions, _ := newTestService()
	handler := service.Handler()

	sessions.Signer.AccessTTL = -time.Minute
	_, body := postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)
	data := body["data"].(map[string]any)
	expired := data["accessToken"].(string)
	sessions.Signer.AccessTTL = authkit.TokenExpiryAccess

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	// Clients key off this flag to refresh instead of re-login.
	if resp["isExpired"] != true {
		t.Errorf("isExpired = %v, want true", resp["isExpired"])
	}
}

func TestRefreshEndpoint(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	_, body := postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)
	data := body["data"].(map[string]any)
	refresh := data["refreshToken"].(string)

	w, rotated := postJSON(t, handler, "/refresh-token", map[string]any{
		"refreshToken": refresh,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	newData := rotated["data"].(map[string]any)
	if newData["refreshToken"] == refresh {
		t.Error("refresh token not rotated")
	}

	// The old value is now revoked.
	w, _ = postJSON(t, handler, "/refresh-token", map[string]any{
		"refreshToken": refresh,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("old token status = %d, want 401", w.Code)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	service, _, sender := newTestService()
	handler := service.Handler()

	postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)
	token := lastToken(t, sender.verificationLinks)

	req := httptest.NewRequest("GET", "/verify-email/"+token, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}

	// Replay is rejected.
	req = httptest.NewRequest("GET", "/verify-email/"+token, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("replay status = %d, want 400", w.Code)
	}
}

func TestForgotPasswordEndpointUniformMessage(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)

	_, bodyKnown := postJSON(t, handler, "/forgot-password", map[string]any{"email": "user@example.com"}, nil)
	_, bodyUnknown := postJSON(t, handler, "/forgot-password", map[string]any{"email": "nobody@example.com"}, nil)

	if bodyKnown["message"] != bodyUnknown["message"] {
		t.Errorf("messages differ: %v vs %v", bodyKnown["message"], bodyUnknown["message"])
	}
	if bodyKnown["success"] != true || bodyUnknown["success"] != true {
		t.Error("both responses should succeed")
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	_, body := postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)
	access := body["data"].(map[string]any)["accessToken"].(string)
	auth := map[string]string{"Authorization": "Bearer " + access}

	w, _ := postJSON(t, handler, "/change-password", map[string]any{
		"currentPassword": "Wrong123!", "newPassword": "Changed456!",
	}, auth)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong current password: status = %d, want 401", w.Code)
	}

	w, _ = postJSON(t, handler, "/change-password", map[string]any{
		"currentPassword": "Valid123!", "newPassword": "Changed456!",
	}, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}

	w, _ = postJSON(t, handler, "/login", map[string]any{
		"email": "user@example.com", "password": "Changed456!",
	}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("login with new password: status = %d", w.Code)
	}
}

func TestDeleteAccountEndpoint(t *testing.T) {
	service, _, _ := newTestService()
	handler := service.Handler()

	_, body := postJSON(t, handler, "/register", map[string]any{
		"email": "user@example.com", "password": "Valid123!", "name": "User",
	}, nil)
	access := body["data"].(map[string]any)["accessToken"].(string)

	w, _ := postJSON(t, handler, "/delete-account", map[string]any{
		"password": "Valid123!",
	}, map[string]string{"Authorization": "Bearer " + access})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}

	w, _ = postJSON(t, handler, "/login", map[string]any{
		"email": "user@example.com", "password": "Valid123!",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("login after delete: status = %d, want 401", w.Code)
	}
}
