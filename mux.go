package authkit

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// Session variable holding the path to land on after an external login.
const postAuthRedirectVar = "postAuthRedirect"

// Service is the HTTP surface over a SessionManager and Reconciler. Mount its
// Handler under a prefix such as /auth.
type Service struct {
	Sessions   *SessionManager
	Reconciler *Reconciler

	// Session keeps short-lived cross-request state for the external login
	// flow (where to land after the provider round trip).
	Session *scs.SessionManager

	// FrontendURL is where browsers get sent after external logins.
	FrontendURL string

	router *mux.Router
}

func (s *Service) EnsureDefaults() *Service {
	if s.Session == nil {
		s.Session = scs.New()
	}
	return s
}

// Handler builds the route table. All responses are JSON envelopes of the
// form {"success": bool, ...} except the external-provider redirects.
func (s *Service) Handler() http.Handler {
	s.EnsureDefaults()
	if s.router == nil {
		r := mux.NewRouter()

		r.HandleFunc("/register", s.onRegister).Methods("POST")
		r.HandleFunc("/login", s.onLogin).Methods("POST")
		r.HandleFunc("/logout", s.onLogout).Methods("POST")
		r.HandleFunc("/refresh-token", s.onRefresh).Methods("POST")
		r.HandleFunc("/forgot-password", s.onForgotPassword).Methods("POST")
		r.HandleFunc("/reset-password", s.onResetPassword).Methods("POST")
		r.HandleFunc("/verify-email/{token}", s.onVerifyEmail).Methods("GET", "POST")

		protect := func(h http.HandlerFunc) http.Handler {
			return s.Sessions.Signer.RequireAuth(h)
		}
		r.Handle("/me", protect(s.onMe)).Methods("GET")
		r.Handle("/update-profile", protect(s.onUpdateProfile)).Methods("PUT", "POST")
		r.Handle("/change-password", protect(s.onChangePassword)).Methods("POST")
		r.Handle("/resend-verification", protect(s.onResendVerification)).Methods("POST")
		r.Handle("/delete-account", protect(s.onDeleteAccount)).Methods("DELETE", "POST")

		s.router = r
	}
	return s.Session.LoadAndSave(s.router)
}

// AddProvider mounts an external login handler under /{name}/. The handler
// receives paths with the prefix stripped, so its routes are "/" for the
// redirect kickoff and "/callback" for the provider's return.
func (s *Service) AddProvider(name string, handler http.Handler) *Service {
	s.Handler()
	prefix := "/" + strings.Trim(name, "/")
	log.Println("Adding login provider at prefix:", prefix)
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Remember where the app wants the browser back, across the
		// provider round trip.
		if redirect := r.URL.Query().Get("redirect"); redirect != "" {
			s.Session.Put(r.Context(), postAuthRedirectVar, redirect)
		}
		http.StripPrefix(prefix, handler).ServeHTTP(w, r)
	})
	s.router.PathPrefix(prefix + "/").Handler(wrapped)
	s.router.Handle(prefix, wrapped)
	return s
}

// HandleExternalIdentity is the terminal step of every provider callback:
// reconcile the asserted identity to a local account, mint a session and send
// the browser back to the frontend with the tokens in the query string.
func (s *Service) HandleExternalIdentity(w http.ResponseWriter, r *http.Request, ident ExternalIdentity) {
	account, err := s.Reconciler.Reconcile(r.Context(), ident)
	if err != nil {
		s.redirectExternalError(w, r, err)
		return
	}
	pair, err := s.Sessions.IssueSession(r.Context(), account)
	if err != nil {
		s.redirectExternalError(w, r, err)
		return
	}

	target := s.FrontendURL + "/auth/callback"
	if redirect := s.Session.PopString(r.Context(), postAuthRedirectVar); redirect != "" && strings.HasPrefix(redirect, "/") {
		target = s.FrontendURL + redirect
	}

	q := url.Values{}
	q.Set("accessToken", pair.AccessToken)
	q.Set("refreshToken", pair.RefreshToken)
	q.Set("userId", pair.AccountID)
	http.Redirect(w, r, target+"?"+q.Encode(), http.StatusFound)
}

// HandleExternalError sends the browser to the frontend error page. Providers
// call this when the code exchange or profile fetch fails.
func (s *Service) HandleExternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.redirectExternalError(w, r, err)
}

func (s *Service) redirectExternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("External login failed: %v", err)
	q := url.Values{}
	q.Set("message", "Authentication failed")
	http.Redirect(w, r, s.FrontendURL+"/auth/error?"+q.Encode(), http.StatusFound)
}

// =============================================================================
// Route handlers
// =============================================================================

func (s *Service) onRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Picture  string `json:"picture"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, NewAuthError(ErrCodeMissingField, "Name is required", "name"))
		return
	}

	pair, err := s.Sessions.Register(r.Context(), req.Email, req.Password, req.Name, req.Picture)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful. Please check your email to verify your account.",
		"data":    pair,
	})
}

func (s *Service) onLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, pair)
}

func (s *Service) onLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *Service) onRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, NewAuthError(ErrCodeMissingField, "Refresh token is required", "refreshToken"))
		return
	}

	pair, err := s.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, pair)
}

func (s *Service) onForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateEmail(req.Email); verr != nil {
		writeError(w, verr)
		return
	}

	if err := s.Sessions.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	// Same message whether or not the email is registered.
	writeMessage(w, http.StatusOK, "If an account exists with this email, a password reset link has been sent.")
}

func (s *Service) onResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, NewAuthError(ErrCodeMissingField, "Token is required", "token"))
		return
	}

	if err := s.Sessions.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset successfully")
}

func (s *Service) onVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	pair, err := s.Sessions.VerifyEmail(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email verified successfully",
		"data":    pair,
	})
}

func (s *Service) onMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	account, err := s.Sessions.Account(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, account)
}

func (s *Service) onUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := ClaimsFromContext(r.Context())
	account, err := s.Sessions.UpdateProfile(r.Context(), claims.Subject, req.Name, req.Picture)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, account)
}

func (s *Service) onChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := ClaimsFromContext(r.Context())
	if err := s.Sessions.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (s *Service) onResendVerification(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if err := s.Sessions.ResendVerification(r.Context(), claims.Subject); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Verification email sent")
}

func (s *Service) onDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := ClaimsFromContext(r.Context())
	if err := s.Sessions.DeleteAccount(r.Context(), claims.Subject, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}

// =============================================================================
// Response helpers
// =============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": true, "message": message})
}

func writeError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		status := http.StatusBadRequest
		if authErr.Code == ErrCodeEmailExists {
			status = http.StatusConflict
		}
		body := map[string]any{
			"success": false,
			"message": authErr.Message,
			"code":    authErr.Code,
		}
		if authErr.Field != "" {
			body["field"] = authErr.Field
		}
		writeJSON(w, status, body)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "Invalid credentials",
		})
	case errors.Is(err, ErrEmailExists):
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false,
			"message": "Email already registered",
			"code":    ErrCodeEmailExists,
		})
	case errors.Is(err, ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success":   false,
			"message":   "Token expired",
			"isExpired": true,
		})
	case errors.Is(err, ErrTokenInvalid):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "Invalid token",
		})
	case errors.Is(err, ErrTokenNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid or expired token",
		})
	case errors.Is(err, ErrAlreadyVerified):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Email is already verified",
		})
	case errors.Is(err, ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "Account not found",
		})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Internal server error",
		})
	}
}
