package oauth2

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	authkit "github.com/sandunsrimal/authkit"
)

// Microsoft authenticates via the Microsoft identity platform ("common"
// tenant, so both personal and work accounts work) and reads the profile from
// Microsoft Graph.
type Microsoft struct {
	*BaseProvider

	// GraphURL is overridable for tests.
	GraphURL string
}

func NewMicrosoft(clientID, clientSecret, callbackURL string, handleIdentity HandleIdentityFunc) *Microsoft {
	m := &Microsoft{
		BaseProvider: newBaseProvider(oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"User.Read"},
			Endpoint:     microsoft.AzureADEndpoint("common"),
		}, handleIdentity),
		GraphURL: "https://graph.microsoft.com/v1.0",
	}
	m.mux.HandleFunc("/callback", m.onCallback)
	return m
}

func (m *Microsoft) onCallback(w http.ResponseWriter, r *http.Request) {
	code, ok := m.checkCallback(w, r)
	if !ok {
		return
	}

	token, err := m.Config.Exchange(r.Context(), code)
	if err != nil {
		m.fail(w, r, fmt.Errorf("code exchange failed: %w", err))
		return
	}

	profile, err := m.fetchProfile(token)
	if err != nil {
		m.fail(w, r, err)
		return
	}

	// Work accounts often leave mail empty; the principal name is the
	// sign-in email there.
	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}

	m.HandleIdentity(w, r, authkit.ExternalIdentity{
		Provider:  authkit.ChannelMicrosoft,
		SubjectID: profile.ID,
		Email:     email,
		Name:      profile.DisplayName,
		Picture:   m.fetchPhoto(token),
	})
}

type microsoftProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (m *Microsoft) fetchProfile(token *oauth2.Token) (*microsoftProfile, error) {
	resp, err := m.graphGet(token, "/me")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch microsoft profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("microsoft profile fetch returned %s", resp.Status)
	}

	var profile microsoftProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode microsoft profile: %w", err)
	}
	return &profile, nil
}

// fetchPhoto retrieves the account photo as a data URL. Best effort: many
// accounts have no photo and Graph answers 404, in which case the caller
// falls back to a generated avatar.
func (m *Microsoft) fetchPhoto(token *oauth2.Token) string {
	resp, err := m.graphGet(token, "/me/photo/$value")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (m *Microsoft) graphGet(token *oauth2.Token, path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", m.GraphURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return http.DefaultClient.Do(req)
}
