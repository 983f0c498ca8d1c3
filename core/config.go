package core

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Env             string
	Debug           bool
	TestMode        bool
	Build           string
	AppName         string
	SecretKey       string
	FrontendBaseURL string
	DefaultFromName string
	DefaultFromAddr string
	SendgridApiKey  string
	RollbarToken    string
	Server          ServerConfig
	Database        DatabaseConfig
	Upload          UploadConfig
}

// DefaultFromEmail returns the sender address used when a message does not
// set one.
func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

type ServerConfig struct {
	Host               string
	Port               int
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	MaxRefreshTokens   int
	ShutdownTimeout    time.Duration
	AllowedCORSOrigins []string
	DisableRequestLogs bool
}

func (c ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

type DatabaseConfig struct {
	Engine        string
	Name          string
	Host          string
	Port          int
	User          string
	Password      string
	AdminUser     string
	AdminPassword string
	DisableTLS    bool
}

// Address builds the connection URL. Admin credentials are used for database
// creation and migrations only.
func (c DatabaseConfig) Address(admin bool) string {
	usr, pwd := c.User, c.Password
	if admin {
		usr, pwd = c.AdminUser, c.AdminPassword
	}
	sslMode := "require"
	if c.DisableTLS {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   c.Engine,
		User:     url.UserPassword(usr, pwd),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: (url.Values{"sslmode": []string{sslMode}, "timezone": []string{"utc"}}).Encode(),
	}
	return u.String()
}

type UploadConfig struct {
	Dir               string
	BaseURL           string
	MaxSize           int64
	AllowedExtensions []string
}

// NewConfig loads the app configuration: defaults first, then an optional
// config/.env.<env> file, then environment variables prefixed with <ENV>_.
func NewConfig(confDir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Chuo")
	v.SetDefault("secretKey", "+w2ml#b5ze)8tkx@c7j(qh!n_d94&yfs-ur3^gva6$p1o05me*")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Chuo")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.accessTokenTTL", 30*time.Minute)
	v.SetDefault("server.refreshTokenTTL", 7*24*time.Hour)
	v.SetDefault("server.maxRefreshTokens", 5)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowedCORSOrigins", []string{"*"})
	v.SetDefault("server.disableRequestLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "chuo")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chuo")
	v.SetDefault("database.password", "chuo")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("upload.dir", filepath.Join("public", "uploads"))
	v.SetDefault("upload.baseURL", "/uploads")
	v.SetDefault("upload.maxSize", int64(20<<20))
	v.SetDefault("upload.allowedExtensions", []string{"jpg", "jpeg", "png", "pdf", "docx", "xlsx", "pptx"})

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := Config{Env: env}
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return &conf, nil
}
