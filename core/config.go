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
	// Config holds the application configuration. It is populated once at
	// startup and passed explicitly to every component that needs it.
	Config struct {
		Env       string
		Debug     bool
		TestMode  bool
		AppName   string
		SecretKey []byte
		Build     string

		SupportEmail     string
		DefaultFromEmail mail.Address

		SendgridApiKey string
		RollbarToken   string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Marking  MarkingConfig

		PasswordResetTimeoutDelta time.Duration
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		LoginURL                  string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	// MarkingConfig groups the grading-session knobs: the grade span used to
	// normalize agreement dispersion, the next-submission selection policy,
	// the submission id requests are pinned to in testing mode, the page
	// render service and the realtime collaboration server echoed to clients
	// on ping.
	MarkingConfig struct {
		GradeScale       float64
		NextPolicy       string
		TestSubmissionID int
		RenderServer     string
		RealtimeServer   string
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration from defaults, an optional
// config/.env.<env> file and environment variables (in increasing priority).
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Scanmark")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3n0t-s3cr3t&4ta11=ch4ng3m3b3f0r3!d3pl0y1ng")
	conf.SetDefault("supportEmail", "support@localhost")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("loginURL", "/login")
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "scanmark")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbUser", "scanmark")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("redisEnabled", false)
	conf.SetDefault("redisAddr", "localhost:6379")
	conf.SetDefault("redisTTL", 30*time.Second)
	conf.SetDefault("gradeScale", 7.0)
	conf.SetDefault("nextSubmissionPolicy", "id")
	conf.SetDefault("testSubmissionID", 1)
	conf.SetDefault("renderServer", "http://127.0.0.1:9090")
	conf.SetDefault("realtimeServer", "http://127.0.0.1:9091")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	appName := conf.GetString("appName")
	return &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          appName,
		SecretKey:        []byte(conf.GetString("secretKey")),
		Build:            conf.GetString("build"),
		SupportEmail:     conf.GetString("supportEmail"),
		DefaultFromEmail: mail.Address{Name: appName, Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Addr:                      conf.GetString("serverAddr"),
			LoginURL:                  conf.GetString("loginURL"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Enabled:  conf.GetBool("redisEnabled"),
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
			TTL:      conf.GetDuration("redisTTL"),
		},
		Marking: MarkingConfig{
			GradeScale:       conf.GetFloat64("gradeScale"),
			NextPolicy:       conf.GetString("nextSubmissionPolicy"),
			TestSubmissionID: conf.GetInt("testSubmissionID"),
			RenderServer:     conf.GetString("renderServer"),
			RealtimeServer:   conf.GetString("realtimeServer"),
		},
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
	}
}

// NewTestConfig returns a Config suitable for unit tests; nothing is read
// from the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Scanmark",
		SecretKey:        []byte("secret"),
		Build:            "test",
		SupportEmail:     "support@test.test",
		DefaultFromEmail: mail.Address{Name: "Scanmark", Address: "noreply@localhost"},
		Server: ServerConfig{
			Host:                      "localhost",
			Addr:                      ":0",
			LoginURL:                  "/login",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Marking: MarkingConfig{
			GradeScale:       7,
			NextPolicy:       "id",
			TestSubmissionID: 1,
			RenderServer:     "http://127.0.0.1:9090",
			RealtimeServer:   "http://127.0.0.1:9091",
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
}
