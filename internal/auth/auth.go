// Package auth resolves the caller of a request. Credential issuance and
// verification happen upstream; this package only reads the result.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// Headers set by the authenticating gateway.
const (
	HeaderAccountID = "X-Account-ID"
	HeaderTenantID  = "X-Tenant-ID"
	HeaderRole      = "X-Role"
)

// IdentityProvider yields the caller of a request. ok is false for anonymous
// requests.
type IdentityProvider interface {
	Identify(r *http.Request) (id entity.Identity, ok bool, err error)
}

// HeaderProvider trusts identity headers injected by a gateway in front of
// the service.
type HeaderProvider struct{}

func (HeaderProvider) Identify(r *http.Request) (entity.Identity, bool, error) {
	accountID := strings.TrimSpace(r.Header.Get(HeaderAccountID))
	tenantID := strings.TrimSpace(r.Header.Get(HeaderTenantID))
	if accountID == "" && tenantID == "" {
		return entity.Identity{}, false, nil
	}
	if accountID == "" || tenantID == "" {
		return entity.Identity{}, false, entity.NewUnauthenticated("both " + HeaderAccountID + " and " + HeaderTenantID + " are required")
	}

	role := entity.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderRole))))
	switch role {
	case "":
		role = entity.RoleCustomer
	case entity.RoleOwner, entity.RoleStaff, entity.RoleCustomer:
	default:
		return entity.Identity{}, false, entity.NewUnauthenticated("unknown role " + string(role))
	}

	return entity.Identity{AccountID: accountID, TenantID: tenantID, Role: role}, true, nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id entity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (entity.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(entity.Identity)
	return id, ok
}
