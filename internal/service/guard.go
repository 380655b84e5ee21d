package service

import (
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// CheckTenant fails with TenantMismatch unless the entity belongs to the caller's tenant.
func CheckTenant(callerTenant, ownerTenant, entityType, id string) error {
	if callerTenant == "" || callerTenant != ownerTenant {
		return entity.NewTenantMismatch(entityType, id)
	}
	return nil
}

// RequireIdentity rejects callers the identity provider could not resolve.
func RequireIdentity(id entity.Identity) error {
	if id.AccountID == "" || id.TenantID == "" {
		return entity.NewUnauthenticated("authentication required")
	}
	return nil
}

// RequireManager allows OWNER and STAFF accounts only.
func RequireManager(id entity.Identity) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !id.Role.CanManage() {
		return entity.NewForbidden("operation requires an OWNER or STAFF account")
	}
	return nil
}
