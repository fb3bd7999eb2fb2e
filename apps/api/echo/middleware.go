package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/trezcool/shule/core/auth"
)

// accessLogMiddleware writes one entry per request.
func accessLogMiddleware(zl *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)
			if err != nil {
				// let the error handler write the final status
				ctx.Error(err)
			}

			req, res := ctx.Request(), ctx.Response()
			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", ctx.RealIP()),
			}
			if p := principal(ctx); p.IsAuthenticated() {
				fields = append(fields, zap.String("user_id", p.UserID), zap.String("role", string(p.Role)))
			}
			zl.Info("request", fields...)
			return nil
		}
	}
}

// superAdminMiddleware restricts a group to super admins.
func superAdminMiddleware(authz *auth.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := authz.RequireSuperAdmin(principal(ctx)); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
