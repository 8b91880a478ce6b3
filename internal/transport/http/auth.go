package http

import (
	"net/http"

	"github.com/astro-web3/print-gateway/internal/domain/authz"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/otel/attribute"
)

const (
	claimsKey   = "printgw.claims"
	tokenField  = "token"
	tokenHeader = "x-access-token"
)

type tokenBody struct {
	Token string `json:"token"`
}

// NewAuthMiddleware authenticates every request and stores the claims of a
// valid token on the context. Without a token the request continues
// unrestricted unless security is on.
func NewAuthMiddleware(authn *authz.Authenticator, security bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "transport.http.Authenticate")

		outcome := authn.Authenticate(ctx, extractToken(c))
		span.SetAttributes(
			attribute.String("auth.outcome", outcome.Kind.String()),
			attribute.Bool("auth.security", security),
		)
		span.End()

		switch outcome.Kind {
		case authz.OutcomeNoToken:
			if security {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"message": authz.ReasonNoToken,
				})
				return
			}
		case authz.OutcomeInvalid:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": authz.ReasonInvalidToken,
			})
			return
		case authz.OutcomeValid:
			c.Set(claimsKey, outcome.Claims)
		}

		c.Next()
	}
}

// extractToken looks in the JSON body, then the query string, then the
// x-access-token header.
func extractToken(c *gin.Context) string {
	if c.Request.Body != nil && c.ContentType() == binding.MIMEJSON {
		var body tokenBody
		// the body is cached for the handler; decode errors surface there
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil && body.Token != "" {
			return body.Token
		}
	}
	if token := c.Query(tokenField); token != "" {
		return token
	}
	return c.GetHeader(tokenHeader)
}

// claimsFrom returns nil when the request carried no token.
func claimsFrom(c *gin.Context) *authz.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*authz.Claims)
	return claims
}
