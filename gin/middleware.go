// Package gin provides Gin-compatible middleware for payment admission.
// This package is a thin adapter that translates gin.Context to stdlib http
// patterns and delegates all admission logic to the http package.
package gin

import (
	"github.com/gin-gonic/gin"

	gatewayhttp "github.com/agentpay/paygate/http"
)

// AdmissionContextKey is the gin context key for the request's Admission.
const AdmissionContextKey = "paygate_admission"

// NewMiddleware creates a payment admission middleware for Gin.
//
// The middleware:
//   - passes free requests through untouched
//   - returns 402 challenges for paid requests without a credential
//   - verifies X-PAYMENT credentials with the facilitator and settles them
//   - verifies X-PAYMENT-ID credentials against the escrow ledger
//   - stores the admission in the Gin context via c.Set(AdmissionContextKey, ...)
//   - calls c.Abort() on challenge or rejection, c.Next() on admission
func NewMiddleware(gw *gatewayhttp.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, proceed := gw.Admit(c.Writer, c.Request)
		if !proceed {
			c.Abort()
			return
		}

		c.Request = r
		if admission := gatewayhttp.GetAdmissionFromContext(r.Context()); admission != nil {
			c.Set(AdmissionContextKey, admission)
		}
		c.Next()
	}
}

// GetAdmissionFromContext extracts the admission from the Gin context.
// Returns nil for free requests and contexts without an admission.
func GetAdmissionFromContext(c *gin.Context) *gatewayhttp.Admission {
	value, exists := c.Get(AdmissionContextKey)
	if !exists {
		return nil
	}
	admission, ok := value.(*gatewayhttp.Admission)
	if !ok {
		return nil
	}
	return admission
}
