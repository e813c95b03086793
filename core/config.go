package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		AuthRateLimit   float64 // requests per second per IP on /auth routes
	}

	AuthConfig struct {
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration
		OTPTTL          time.Duration
		OTPBypassEmails []string
		CookieDomain    string
		SecureCookies   bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	SMTPConfig struct {
		Host     string
		Port     int
		Username string
		Password string
	}

	EmailConfig struct {
		Backend        string // console | smtp | sendgrid
		SendgridAPIKey string
		SMTP           SMTPConfig
	}

	Config struct {
		AppName                   string
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Email    EmailConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

// FromEmail parses DefaultFromEmail, falling back to AppName <noreply@localhost>.
func (c *Config) FromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}

// IsOTPBypassed reports whether the given (cleaned) email skips the OTP step.
func (c *Config) IsOTPBypassed(email string) bool {
	for _, e := range c.Auth.OTPBypassEmails {
		if CleanString(e, true /* lower */) == email {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Campus")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k2l$n8f(0v!q9#zx7-w^h3u*c5r@y1t&b6p+e4m=s)d")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Campus <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.authRateLimit", 5)

	v.SetDefault("auth.accessTokenTTL", 15*time.Minute)
	v.SetDefault("auth.refreshTokenTTL", 7*24*time.Hour)
	v.SetDefault("auth.otpTTL", 5*time.Minute)
	v.SetDefault("auth.otpBypassEmails", []string{})
	v.SetDefault("auth.cookieDomain", "")
	v.SetDefault("auth.secureCookies", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "campus")
	v.SetDefault("database.user", "campus")
	v.SetDefault("database.password", "campus")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)

	v.SetDefault("email.backend", "console")
	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
}

// NewConfig loads the configuration for the current ENV (DEV (local; default), TEST, QA, PROD).
// Values are read from `<ENV>_<KEY>` environment variables, optionally seeded from config/.env.<env>.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", "memory")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			AuthRateLimit:   v.GetFloat64("server.authRateLimit"),
		},
		Auth: AuthConfig{
			AccessTokenTTL:  v.GetDuration("auth.accessTokenTTL"),
			RefreshTokenTTL: v.GetDuration("auth.refreshTokenTTL"),
			OTPTTL:          v.GetDuration("auth.otpTTL"),
			OTPBypassEmails: v.GetStringSlice("auth.otpBypassEmails"),
			CookieDomain:    v.GetString("auth.cookieDomain"),
			SecureCookies:   v.GetBool("auth.secureCookies"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
		},
		Email: EmailConfig{
			Backend:        v.GetString("email.backend"),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
			SMTP: SMTPConfig{
				Host:     v.GetString("email.smtp.host"),
				Port:     v.GetInt("email.smtp.port"),
				Username: v.GetString("email.smtp.username"),
				Password: v.GetString("email.smtp.password"),
			},
		},
	}
}

// NewTestConfig returns the configuration used by tests: in-memory storage, no debug output.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "test-secret"
	conf.Database.Engine = "memory"
	conf.Email.Backend = "console"
	conf.RollbarToken = ""
	return conf
}
