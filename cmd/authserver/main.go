// Command authserver runs the authentication service over HTTP with a sqlite
// database. Configuration is environment-only; see Config for the variables.
package main

import (
	"log"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	authkit "github.com/sandunsrimal/authkit"
	akoauth2 "github.com/sandunsrimal/authkit/oauth2"
	gormstores "github.com/sandunsrimal/authkit/stores/gorm"
)

type Config struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"authserver.db"`

	// BaseURL is this server's externally-visible URL, used to build the
	// provider callback URLs registered with each provider.
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	JWTAccessSecret  string `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET,required"`

	// Postmark delivery is optional; without a token emails go to the log.
	PostmarkServerToken string `env:"POSTMARK_SERVER_TOKEN"`
	EmailFrom           string `env:"EMAIL_FROM" envDefault:"no-reply@localhost"`
	AppName             string `env:"APP_NAME" envDefault:"AuthServer"`

	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID      string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `env:"FACEBOOK_CLIENT_SECRET"`
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := gormstores.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	stores := gormstores.New(db)

	var sender authkit.EmailSender = authkit.ConsoleEmailSender{}
	if cfg.PostmarkServerToken != "" {
		sender = authkit.NewPostmarkEmailSender(cfg.PostmarkServerToken, cfg.EmailFrom, cfg.AppName)
	}

	signer := (&authkit.Signer{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		Issuer:        cfg.AppName,
	}).EnsureDefaults()

	sessions := &authkit.SessionManager{
		Accounts:      stores,
		RefreshTokens: stores,
		Tokens:        &authkit.SingleUseIssuer{Store: stores},
		Signer:        signer,
		Hasher:        &authkit.PasswordHasher{},
		Email:         sender,
		FrontendURL:   cfg.FrontendURL,
	}

	service := &authkit.Service{
		Sessions:    sessions,
		Reconciler:  &authkit.Reconciler{Accounts: stores},
		FrontendURL: cfg.FrontendURL,
	}
	handler := service.Handler()

	if cfg.GoogleClientID != "" {
		service.AddProvider("google", akoauth2.NewGoogle(
			cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.BaseURL+"/auth/google/callback",
			service.HandleExternalIdentity))
	}
	if cfg.FacebookClientID != "" {
		service.AddProvider("facebook", akoauth2.NewFacebook(
			cfg.FacebookClientID, cfg.FacebookClientSecret,
			cfg.BaseURL+"/auth/facebook/callback",
			service.HandleExternalIdentity))
	}
	if cfg.MicrosoftClientID != "" {
		service.AddProvider("microsoft", akoauth2.NewMicrosoft(
			cfg.MicrosoftClientID, cfg.MicrosoftClientSecret,
			cfg.BaseURL+"/auth/microsoft/callback",
			service.HandleExternalIdentity))
	}

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", handler))

	log.Printf("Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
