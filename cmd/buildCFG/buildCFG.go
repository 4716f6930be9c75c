package buildCFG

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"

	"eventide/internal/auth"
	"eventide/internal/mailer"
	"eventide/internal/media"
	"eventide/internal/rabbit"
)

type ServerConfig struct {
	Port            string
	Mode            string
	ShutdownTimeout time.Duration
	// PublicURL is the externally reachable base of the service, used in
	// links sent by email.
	PublicURL string
}

type DBConfig struct {
	Driver     string
	MasterDSN  string
	SlaveDSNs  []string
	SQLitePath string
	Pool       *dbpg.Options
}

type FilesConfig struct {
	Root    string
	BaseURL string
	Image   media.ImageOptions
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:      cfg.GetString("server.port"),
		Mode:      cfg.GetString("server.mode"),
		PublicURL: strings.TrimRight(cfg.GetString("server.public_url"), "/"),
	}
	if sc.Port == "" {
		sc.Port = "8080"
		log.Warn().Msg("server.port not set, using 8080")
	}
	sc.ShutdownTimeout = duration(cfg, log, "server.shutdown_timeout", 10*time.Second)
	return sc
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (DBConfig, error) {
	dc := DBConfig{
		Driver:     cfg.GetString("database.driver"),
		SQLitePath: cfg.GetString("database.sqlite_path"),
	}
	if dc.Driver == "" {
		dc.Driver = "postgres"
	}

	switch dc.Driver {
	case "sqlite":
		if dc.SQLitePath == "" {
			dc.SQLitePath = "eventide.db"
		}
		return dc, nil
	case "postgres":
	default:
		return dc, fmt.Errorf("unsupported database.driver %q", dc.Driver)
	}

	dc.MasterDSN = cfg.GetString("database.master_dsn")
	if dc.MasterDSN == "" {
		return dc, fmt.Errorf("database.master_dsn is required")
	}
	for _, dsn := range strings.Split(cfg.GetString("database.slave_dsns"), ",") {
		if dsn = strings.TrimSpace(dsn); dsn != "" {
			dc.SlaveDSNs = append(dc.SlaveDSNs, dsn)
		}
	}

	dc.Pool = &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: duration(cfg, log, "database.conn_max_lifetime", 30*time.Minute),
	}
	if dc.Pool.MaxOpenConns <= 0 {
		dc.Pool.MaxOpenConns = 20
	}
	if dc.Pool.MaxIdleConns <= 0 {
		dc.Pool.MaxIdleConns = 5
	}
	return dc, nil
}

// BuildRabbitConfig returns ok=false when no broker is configured.
func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (rabbit.Config, bool) {
	rc := rabbit.Config{
		URL:          cfg.GetString("rabbitmq.url"),
		Exchange:     cfg.GetString("rabbitmq.exchange"),
		ExchangeType: cfg.GetString("rabbitmq.exchange_type"),
		Queue:        cfg.GetString("rabbitmq.queue"),
		RoutingKey:   cfg.GetString("rabbitmq.routing_key"),
		Prefetch:     cfg.GetInt("rabbitmq.prefetch"),
	}
	if rc.URL == "" {
		log.Warn().Msg("rabbitmq.url not set, async messages are handled in-process")
		return rc, false
	}
	if rc.Exchange == "" {
		rc.Exchange = "eventide"
	}
	if rc.Queue == "" {
		rc.Queue = "eventide.registrations"
	}
	if rc.RoutingKey == "" {
		rc.RoutingKey = "registration"
	}
	return rc, true
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (auth.Config, error) {
	ac := auth.Config{
		Secret:         cfg.GetString("auth.jwt_secret"),
		Issuer:         cfg.GetString("auth.issuer"),
		GoogleClientID: cfg.GetString("auth.google_client_id"),
		AdminEmail:     cfg.GetString("auth.admin_email"),
		TTL:            duration(cfg, log, "auth.token_ttl", 24*time.Hour),
	}
	if len(ac.Secret) < 16 {
		return ac, fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if ac.Issuer == "" {
		ac.Issuer = "eventide"
	}
	return ac, nil
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		Username: cfg.GetString("mail.username"),
		Password: cfg.GetString("mail.password"),
		From:     cfg.GetString("mail.from"),
	}
	if mc.Host == "" {
		log.Warn().Msg("mail.host not set, emails are logged instead of sent")
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	return mc
}

func BuildFilesConfig(cfg *config.Config, log *zerolog.Logger) FilesConfig {
	fc := FilesConfig{
		Root:    cfg.GetString("files.root"),
		BaseURL: cfg.GetString("files.base_url"),
		Image: media.ImageOptions{
			MaxWidth:  cfg.GetInt("files.image_max_width"),
			MaxHeight: cfg.GetInt("files.image_max_height"),
			Quality:   float32(cfg.GetInt("files.image_quality")),
		},
	}
	if fc.Root == "" {
		fc.Root = "./uploads"
	}
	if fc.BaseURL == "" {
		fc.BaseURL = "/files"
	}
	if fc.Image.MaxWidth <= 0 || fc.Image.MaxHeight <= 0 || fc.Image.Quality <= 0 {
		log.Debug().Msg("image options incomplete, using defaults")
		fc.Image = media.DefaultImageOptions
	}
	return fc
}

func BuildRetryStrategy(cfg *config.Config, log *zerolog.Logger) retry.Strategy {
	s := retry.Strategy{
		Attempts: cfg.GetInt("retry.attempts"),
		Delay:    duration(cfg, log, "retry.delay", 20*time.Millisecond),
		Backoff:  2,
	}
	if s.Attempts <= 0 {
		s.Attempts = 3
	}
	return s
}

func duration(cfg *config.Config, log *zerolog.Logger, key string, def time.Duration) time.Duration {
	raw := cfg.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msgf("bad duration, using %s", def)
		return def
	}
	return d
}
