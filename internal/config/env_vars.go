package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type envVars struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	AppName                string `env:"APP_NAME" envDefault:"User Service"`
	Env                    string `env:"ENV" envDefault:"DEV"`
	DBPath                 string `env:"DB_PATH" envDefault:"./data/users.db"`
	JWTSecret              string `env:"JWT_SECRET"`
	JWTIssuer              string `env:"JWT_ISSUER" envDefault:"amazingshop-user-service"`
	AccessTokenTTLSeconds  int64  `env:"ACCESS_TOKEN_TTL_SECONDS" envDefault:"900"`
	RefreshTokenTTLSeconds int64  `env:"REFRESH_TOKEN_TTL_SECONDS" envDefault:"604800"`
	GoogleClientID         string `env:"GOOGLE_CLIENT_ID"`
}

var _ Config = (*envVars)(nil)

// New loads configuration from the environment. The signing secret has no
// default and must be supplied.
func New() (Config, error) {
	cfg := &envVars{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.New] env.Parse")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("[config.New] JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *envVars) GetPort() string {
	port := c.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c *envVars) GetAppName() string { return c.AppName }

func (c *envVars) GetEnv() string { return c.Env }

func (c *envVars) GetDBPath() string { return c.DBPath }

func (c *envVars) GetJWTSecret() string { return c.JWTSecret }

func (c *envVars) GetJWTIssuer() string { return c.JWTIssuer }

func (c *envVars) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

func (c *envVars) GetRefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSeconds) * time.Second
}

func (c *envVars) GetGoogleClientID() string { return c.GoogleClientID }
