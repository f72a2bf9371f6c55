package config

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bigredeye/cichain/internal/projects"
	"github.com/bigredeye/cichain/pkg/conf"
)

const (
	SourceConfig   = "config"
	SourceDataBase = "database"
)

type Config struct {
	Server struct {
		ListenAddress string
		// RootURL of the CI server the builds come from.
		RootURL string
		// ServerUUID of the CI server, prefixes webhook ids.
		ServerUUID string
	}

	Intake struct {
		EndpointFormat string
		MaxRetries     int
		Backoff        time.Duration
		Timeout        time.Duration
		Workers        int
	}

	Projects struct {
		Source   string
		CacheTTL time.Duration
		Root     projects.ProjectConfig
		List     []projects.ProjectConfig
	}

	Graph struct {
		Source string
	}

	DataBase struct {
		Host    string
		Port    uint16
		User    string
		Pass    string
		Name    string
		Migrate bool
	}

	Log struct {
		File string
		Dev  bool
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.listenaddress":  ":8080",
		"server.rooturl":        "http://localhost:8111",
		"intake.endpointformat": "https://webhook-intake.%s/api/v2/webhook",
		"intake.maxretries":     3,
		"intake.backoff":        10 * time.Second,
		"intake.timeout":        10 * time.Second,
		"intake.workers":        8,
		"projects.source":       SourceConfig,
		"projects.cachettl":     time.Minute,
		"graph.source":          SourceDataBase,
		"database.port":         5432,
	}
}

func ParseConfig(path string) (*Config, error) {
	config := &Config{}
	err := conf.ParseConfig(config,
		conf.EnvPrefix("CICHAIN"),
		conf.ConfigPath(path),
		conf.Defaults(defaults()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Server.ServerUUID != "" {
		if _, err := uuid.Parse(c.Server.ServerUUID); err != nil {
			return errors.Wrap(err, "server uuid")
		}
	}
	for _, source := range []string{c.Projects.Source, c.Graph.Source} {
		if source != SourceConfig && source != SourceDataBase {
			return errors.Errorf("unknown source %q", source)
		}
	}
	if c.Graph.Source == SourceConfig {
		return errors.New("build graph can only be read from the database")
	}
	if c.Intake.MaxRetries < 0 {
		return errors.Errorf("negative max retries %d", c.Intake.MaxRetries)
	}
	return nil
}
