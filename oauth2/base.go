package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	authkit "github.com/sandunsrimal/authkit"
)

// HandleIdentityFunc receives the externally-verified identity at the end of
// a successful provider callback. Typically Service.HandleExternalIdentity.
type HandleIdentityFunc func(w http.ResponseWriter, r *http.Request, ident authkit.ExternalIdentity)

// ErrorFunc is invoked when the provider round trip fails anywhere between
// the state check and the profile fetch.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// BaseProvider carries the pieces every provider shares: the oauth2 exchange
// config, the state-cookie dance and the two terminal callbacks. Providers
// embed it and register their own /callback handler.
type BaseProvider struct {
	Config         oauth2.Config
	HandleIdentity HandleIdentityFunc
	OnError        ErrorFunc

	mux *http.ServeMux
}

func newBaseProvider(config oauth2.Config, handleIdentity HandleIdentityFunc) *BaseProvider {
	b := &BaseProvider{
		Config:         config,
		HandleIdentity: handleIdentity,
		mux:            http.NewServeMux(),
	}
	b.mux.HandleFunc("/", b.onRedirect)
	return b
}

func (b *BaseProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// onRedirect kicks off the flow: set a state cookie and send the browser to
// the provider's consent page.
func (b *BaseProvider) onRedirect(w http.ResponseWriter, r *http.Request) {
	state := generateStateCookie(w)
	http.Redirect(w, r, b.Config.AuthCodeURL(state), http.StatusFound)
}

// checkCallback validates the anti-CSRF state and returns the authorization
// code. On failure it reports the error and returns ok=false.
func (b *BaseProvider) checkCallback(w http.ResponseWriter, r *http.Request) (code string, ok bool) {
	stateCookie, _ := r.Cookie("oauthstate")
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		b.fail(w, r, fmt.Errorf("oauth state mismatch"))
		return "", false
	}
	// One round trip per state value.
	http.SetCookie(w, &http.Cookie{Name: "oauthstate", Value: "", Path: "/", MaxAge: -1})

	code = r.FormValue("code")
	if code == "" {
		b.fail(w, r, fmt.Errorf("no authorization code in callback"))
		return "", false
	}
	return code, true
}

func (b *BaseProvider) fail(w http.ResponseWriter, r *http.Request, err error) {
	if b.OnError != nil {
		b.OnError(w, r, err)
		return
	}
	log.Printf("OAuth callback failed: %v", err)
	http.Error(w, "Authentication failed", http.StatusUnauthorized)
}

func generateStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Println("Error generating oauth state:", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:    "oauthstate",
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(10 * time.Minute),
		MaxAge:  600,
	})
	return state
}
