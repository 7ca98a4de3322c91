package oauth2

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	authkit "github.com/sandunsrimal/authkit"
)

// Facebook authenticates via Facebook Login and reads the profile from the
// Graph API.
type Facebook struct {
	*BaseProvider

	// ProfileURL is overridable for tests.
	ProfileURL string
}

func NewFacebook(clientID, clientSecret, callbackURL string, handleIdentity HandleIdentityFunc) *Facebook {
	f := &Facebook{
		BaseProvider: newBaseProvider(oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		}, handleIdentity),
		ProfileURL: "https://graph.facebook.com/me",
	}
	f.mux.HandleFunc("/callback", f.onCallback)
	return f
}

func (f *Facebook) onCallback(w http.ResponseWriter, r *http.Request) {
	code, ok := f.checkCallback(w, r)
	if !ok {
		return
	}

	token, err := f.Config.Exchange(r.Context(), code)
	if err != nil {
		f.fail(w, r, fmt.Errorf("code exchange failed: %w", err))
		return
	}

	profile, err := f.fetchProfile(token)
	if err != nil {
		f.fail(w, r, err)
		return
	}

	f.HandleIdentity(w, r, authkit.ExternalIdentity{
		Provider:  authkit.ChannelFacebook,
		SubjectID: profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		Picture:   profile.Picture.Data.URL,
	})
}

type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *Facebook) fetchProfile(token *oauth2.Token) (*facebookProfile, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email,picture.type(large)")
	q.Set("access_token", token.AccessToken)

	resp, err := http.Get(f.ProfileURL + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch facebook profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook profile fetch returned %s", resp.Status)
	}

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode facebook profile: %w", err)
	}
	return &profile, nil
}
