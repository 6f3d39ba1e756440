package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
		SessionSecret   string // signs the console session cookie; random per process when empty
	}

	APIConfig struct {
		BaseURL           string
		Timeout           time.Duration
		SessionCookieName string
		SessionCookie     string
	}

	MirrorConfig struct {
		Driver string // memory | file | postgres
		Dir    string
		DSN    string
	}

	MutationConfig struct {
		RemoteSubjectDelete bool
		CompensateRename    bool
	}

	Config struct {
		Env        string
		Build      string
		AppName    string
		Debug      bool
		TestMode   bool
		DateLayout string

		Server   ServerConfig
		API      APIConfig
		Mirror   MirrorConfig
		Mutation MutationConfig

		RollbarToken     string
		SendgridAPIKey   string
		AlertRecipients  []string
		defaultFromEmail string
	}
)

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased ENV (DEV by default), e.g. DEV_API_BASEURL.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Masomo")
	v.SetDefault("dateLayout", "01/02/2006")
	v.SetDefault("defaultFromEmail", "Masomo <noreply@localhost>")
	v.SetDefault("alertRecipients", []string{})
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.sessionSecret", "")
	v.SetDefault("api.baseURL", "http://localhost:5000/api/v1")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.sessionCookieName", "token")
	v.SetDefault("api.sessionCookie", "")
	v.SetDefault("mirror.driver", "file")
	v.SetDefault("mirror.dir", filepath.Join(os.TempDir(), "masomo-mirror"))
	v.SetDefault("mirror.dsn", "")
	v.SetDefault("mutation.remoteSubjectDelete", false)
	v.SetDefault("mutation.compensateRename", false)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:        env,
		Build:      v.GetString("build"),
		AppName:    v.GetString("appName"),
		Debug:      v.GetBool("debug"),
		TestMode:   v.GetBool("testMode"),
		DateLayout: v.GetString("dateLayout"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
			SessionSecret:   v.GetString("server.sessionSecret"),
		},
		API: APIConfig{
			BaseURL:           strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout:           v.GetDuration("api.timeout"),
			SessionCookieName: v.GetString("api.sessionCookieName"),
			SessionCookie:     v.GetString("api.sessionCookie"),
		},
		Mirror: MirrorConfig{
			Driver: strings.ToLower(v.GetString("mirror.driver")),
			Dir:    v.GetString("mirror.dir"),
			DSN:    v.GetString("mirror.dsn"),
		},
		Mutation: MutationConfig{
			RemoteSubjectDelete: v.GetBool("mutation.remoteSubjectDelete"),
			CompensateRename:    v.GetBool("mutation.compensateRename"),
		},
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		AlertRecipients:  v.GetStringSlice("alertRecipients"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

// DefaultFromEmail parses the configured sender address, falling back to a bare local address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// AlertAddresses returns the parsed partial-failure alert recipients, skipping malformed ones.
func (c *Config) AlertAddresses() []mail.Address {
	addrs := make([]mail.Address, 0, len(c.AlertRecipients))
	for _, r := range c.AlertRecipients {
		if a, err := mail.ParseAddress(strings.TrimSpace(r)); err == nil {
			addrs = append(addrs, *a)
		}
	}
	return addrs
}
