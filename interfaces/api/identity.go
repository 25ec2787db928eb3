package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rcflow/rcflow/domain/changerequest"
)

// Identity headers. Authentication happens upstream; requests arrive
// with the caller's identity already resolved into these headers.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// principalKey is the gin context key for the caller's principal.
const principalKey = "rcflow_principal"

// DevPrincipal is the identity assumed in dev mode when a request
// carries no identity headers.
var DevPrincipal = changerequest.Principal{
	UID:   "dev-user",
	Email: "dev@localhost",
}

// identityMiddleware resolves the caller's principal from the identity
// headers. In dev mode, anonymous requests act as DevPrincipal.
func identityMiddleware(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := changerequest.Principal{
			UID:   c.GetHeader(HeaderUserID),
			Email: c.GetHeader(HeaderUserEmail),
		}
		if !p.Authenticated() && devMode {
			p = DevPrincipal
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// currentPrincipal returns the caller's principal for this request.
func currentPrincipal(c *gin.Context) changerequest.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(changerequest.Principal); ok {
			return p
		}
	}
	return changerequest.Principal{}
}
