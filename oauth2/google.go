package oauth2

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	authkit "github.com/sandunsrimal/authkit"
)

// Google authenticates via Google Sign-In. The profile comes from the ID
// token included in the exchange response, validated against Google's
// certificates, so no extra userinfo round trip is needed.
type Google struct {
	*BaseProvider
}

func NewGoogle(clientID, clientSecret, callbackURL string, handleIdentity HandleIdentityFunc) *Google {
	g := &Google{
		BaseProvider: newBaseProvider(oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}, handleIdentity),
	}
	g.mux.HandleFunc("/callback", g.onCallback)
	return g
}

func (g *Google) onCallback(w http.ResponseWriter, r *http.Request) {
	code, ok := g.checkCallback(w, r)
	if !ok {
		return
	}

	token, err := g.Config.Exchange(r.Context(), code)
	if err != nil {
		g.fail(w, r, fmt.Errorf("code exchange failed: %w", err))
		return
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		g.fail(w, r, fmt.Errorf("no id_token in exchange response"))
		return
	}
	payload, err := idtoken.Validate(r.Context(), rawIDToken, g.Config.ClientID)
	if err != nil {
		g.fail(w, r, fmt.Errorf("id_token validation failed: %w", err))
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	g.HandleIdentity(w, r, authkit.ExternalIdentity{
		Provider:  authkit.ChannelGoogle,
		SubjectID: payload.Subject,
		Email:     email,
		Name:      name,
		Picture:   picture,
	})
}
