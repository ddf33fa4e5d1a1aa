package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/amazingshop/user-service/federated"
	"github.com/amazingshop/user-service/internal/config"
	"github.com/amazingshop/user-service/session"
	"github.com/amazingshop/user-service/token"
	"github.com/amazingshop/user-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server wires the HTTP surface to the session lifecycle, the request
// authenticator and the federated identity binder.
type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	users    users.Repo
	sessions *session.Lifecycle
	codec    *token.Codec
	binder   *federated.Binder
	verifier federated.IdentityVerifier // nil when federated login is not configured
}

func New(
	cfg config.Config,
	repo users.Repo,
	sessions *session.Lifecycle,
	codec *token.Codec,
	binder *federated.Binder,
	verifier federated.IdentityVerifier,
) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if repo == nil {
		return nil, errors.New("[server.New] users repo is required")
	}
	if sessions == nil {
		return nil, errors.New("[server.New] session lifecycle is required")
	}
	if codec == nil {
		return nil, errors.New("[server.New] token codec is required")
	}
	if binder == nil {
		return nil, errors.New("[server.New] federated binder is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		users:    repo,
		sessions: sessions,
		codec:    codec,
		binder:   binder,
		verifier: verifier,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Msg(fmt.Sprintf("[%-7s] %s", parts[0], parts[1]))
		} else {
			log.Info().Msg(fmt.Sprintf("[%-7s] %s", "", parts[0]))
		}
	}
}
