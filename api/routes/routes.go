package routes

import (
	"time"

	"vigil/api/handler"
	"vigil/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Security       *handler.SecurityHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	securityHandler *handler.SecurityHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Security:       securityHandler,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/login/mfa", r.Auth.LoginWithMFA, r.LoginRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/password", r.Auth.ChangePassword, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/mfa/enable", r.Auth.EnableMFA, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/mfa/verify", r.Auth.VerifyMFA, r.AuthMiddleware.RequireAuth)
	e.POST("/auth/mfa/disable", r.Auth.DisableMFA, r.AuthMiddleware.RequireAuth)
	e.GET("/me", r.Auth.Me, r.AuthMiddleware.RequireAuth)

	admin := e.Group("/security", r.AuthMiddleware.RequireAuth, middleware.RequireRole("admin"))
	admin.GET("/alerts", r.Security.ListAlerts)
	admin.PATCH("/alerts/:id", r.Security.TransitionAlert)
	admin.GET("/audit-logs", r.Security.ListAuditLogs)
	admin.GET("/audit-logs/export.csv", r.Security.ExportAuditLogs)
	admin.GET("/audit-logs/summary", r.Security.AuditLogSummary)

	self := e.Group("/security/me", r.AuthMiddleware.RequireAuth)
	self.GET("/activities", r.Security.MyActivities)
	self.POST("/report-incident", r.Security.ReportIncident, r.AuthRate.Middleware())
	self.GET("/summary", r.Security.MySummary)
}
