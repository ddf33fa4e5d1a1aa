package server

const (
	RouteAuthSignup  = "POST /auth/signup"
	RouteAuthLogin   = "POST /auth/login"
	RouteAuthRefresh = "POST /auth/refresh"
	RouteAuthLogout  = "POST /auth/logout"
	RouteAuthGoogle  = "POST /auth/oauth2/google"
	RouteAuthHealth  = "GET /auth/health"

	RouteUsersMe       = "GET /users/me"
	RouteUsersMeUpdate = "PUT /users/me"
	RouteUsersHealth   = "GET /users/health"

	RouteAdminUsers       = "GET /users/admin/all"
	RouteAdminUser        = "GET /users/admin/{id}"
	RouteAdminUserPromote = "POST /users/admin/{id}/promote"
	RouteAdminUserDelete  = "DELETE /users/admin/{id}"
)
