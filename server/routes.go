package server

import "net/http"

func (s *Server) initRoutes() {
	public := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.BearerAuthMiddleware,
	}
	protected := append(append([]func(http.HandlerFunc) http.HandlerFunc{}, public...), s.RequireAuth)
	admin := append(append([]func(http.HandlerFunc) http.HandlerFunc{}, protected...), s.RequireAdmin)

	s.RegisterRouteFunc(RouteAuthSignup, ChainMiddleware(s.SignupHandler(), public...))
	s.RegisterRouteFunc(RouteAuthLogin, ChainMiddleware(s.LoginHandler(), public...))
	s.RegisterRouteFunc(RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), public...))
	s.RegisterRouteFunc(RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), public...))
	s.RegisterRouteFunc(RouteAuthGoogle, ChainMiddleware(s.GoogleLoginHandler(), public...))
	s.RegisterRouteFunc(RouteAuthHealth, ChainMiddleware(s.HealthHandler("auth"), public...))

	s.RegisterRouteFunc(RouteUsersMe, ChainMiddleware(s.CurrentUserHandler(), protected...))
	s.RegisterRouteFunc(RouteUsersMeUpdate, ChainMiddleware(s.UpdateCurrentUserHandler(), protected...))
	s.RegisterRouteFunc(RouteUsersHealth, ChainMiddleware(s.HealthHandler("users"), public...))

	s.RegisterRouteFunc(RouteAdminUsers, ChainMiddleware(s.ListUsersHandler(), admin...))
	s.RegisterRouteFunc(RouteAdminUser, ChainMiddleware(s.GetUserHandler(), admin...))
	s.RegisterRouteFunc(RouteAdminUserPromote, ChainMiddleware(s.PromoteUserHandler(), admin...))
	s.RegisterRouteFunc(RouteAdminUserDelete, ChainMiddleware(s.DeleteUserHandler(), admin...))
}
