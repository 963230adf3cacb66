package util

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 30 * 24 * time.Hour
	defaultRotationFloor = 4 * time.Hour
	defaultGraceWindow   = 30 * time.Minute

	defaultSessionIdleTimeout = 30 * time.Minute
	defaultHandshakeTimeout   = 5 * time.Second

	defaultIdleStore = "memory"
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type TokenConfig struct {
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewTokenConfig() *TokenConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	return &TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// SessionConfig holds the refresh protocol and idle policy tunables.
type SessionConfig struct {
	RotationFloor    time.Duration
	GraceWindow      time.Duration
	IdleTimeout      time.Duration
	HandshakeTimeout time.Duration
	IdleStore        string
}

func NewSessionConfig() *SessionConfig {
	store := strings.ToLower(os.Getenv("IDLE_STORE"))
	if store == "" {
		store = defaultIdleStore
	}

	return &SessionConfig{
		RotationFloor:    parseDurationOrDefault("ROTATION_FLOOR", defaultRotationFloor),
		GraceWindow:      parseDurationOrDefault("REFRESH_GRACE_WINDOW", defaultGraceWindow),
		IdleTimeout:      parseDurationOrDefault("SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
		HandshakeTimeout: parseDurationOrDefault("WS_HANDSHAKE_TIMEOUT", defaultHandshakeTimeout),
		IdleStore:        store,
	}
}

func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		RotationFloor:    defaultRotationFloor,
		GraceWindow:      defaultGraceWindow,
		IdleTimeout:      defaultSessionIdleTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		IdleStore:        defaultIdleStore,
	}
}

type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	Path     string
}

func NewCookieConfig() *CookieConfig {
	return &CookieConfig{
		Secure:   parseBoolOrDefault("COOKIE_SECURE", true),
		SameSite: parseSameSite(os.Getenv("COOKIE_SAMESITE")),
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		Path:     "/",
	}
}

func GetWebhookURL() string {
	return os.Getenv("WEBHOOK_URL")
}

// GetAllowedOrigins returns the websocket origin patterns, comma separated in WS_ALLOWED_ORIGINS.
func GetAllowedOrigins() []string {
	raw := os.Getenv("WS_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseBoolOrDefault(varName string, def bool) bool {
	if v := os.Getenv(varName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("Invalid bool in %s: %s, using default %t", varName, v, def)
	}
	return def
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
