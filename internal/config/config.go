package config

import "time"

type Config interface {
	EnvConfig
	TokenConfig
	OAuthConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetDBPath() string
}

type TokenConfig interface {
	GetJWTSecret() string
	GetJWTIssuer() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type OAuthConfig interface {
	GetGoogleClientID() string
}
