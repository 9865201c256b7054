package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/context"
)

const (
	// HeaderAdminID is the header key for the acting admin id
	HeaderAdminID = "X-Admin-ID"
	// HeaderComponent is the header key for the calling component name
	HeaderComponent = "X-Component"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			// get request id from header
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			// get admin id from header
			adminID := req.Header.Get(HeaderAdminID)

			// get component from header
			component := req.Header.Get(HeaderComponent)

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, req.URL.Path)
			ctx = context.SetRemoteIP(ctx, c.RealIP())
			ctx = context.SetAdminID(ctx, adminID)
			ctx = context.SetComponent(ctx, component)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
