package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const demoTenant = "tenant-demo"

// demoData is a small storefront to explore the API with. Identities are
// passed as X-Account-ID / X-Tenant-ID / X-Role headers.
func demoData(now time.Time) repository.SeedData {
	return repository.SeedData{
		Tenants: []entity.Tenant{
			{ID: demoTenant, Name: "Demo Music Shop", Subdomain: "demo", Active: true, CreatedAt: now},
		},
		Accounts: []entity.Account{
			{ID: "acct-owner", Email: "owner@demo.test", Role: entity.RoleOwner, TenantID: demoTenant, CreatedAt: now},
			{ID: "acct-staff", Email: "staff@demo.test", Role: entity.RoleStaff, TenantID: demoTenant, CreatedAt: now},
			{ID: "acct-customer", Email: "customer@demo.test", Role: entity.RoleCustomer, TenantID: demoTenant, CreatedAt: now},
		},
		Products: []entity.Product{
			{ID: "prod-001", TenantID: demoTenant, Name: "Amp", SKU: "AMP-100", Price: decimal.NewFromInt(100), QuantityOnHand: 5},
			{ID: "prod-002", TenantID: demoTenant, Name: "Electric Guitar", SKU: "GTR-550", Price: decimal.RequireFromString("549.99"), QuantityOnHand: 8},
			{ID: "prod-003", TenantID: demoTenant, Name: "Overdrive Pedal", SKU: "PED-089", Price: decimal.RequireFromString("89.99"), QuantityOnHand: 40},
			{ID: "prod-004", TenantID: demoTenant, Name: "Instrument Cable", SKU: "CBL-012", Price: decimal.RequireFromString("12.50"), QuantityOnHand: 200},
		},
		Stores: []entity.Store{
			{ID: "store-downtown", TenantID: demoTenant, Name: "Downtown", City: "Springfield", Address: "12 Main St"},
		},
		Levels: []entity.StockLevel{
			{StockKey: entity.StockKey{TenantID: demoTenant, StoreID: "store-downtown", ProductID: "prod-001"}, Quantity: 2},
			{StockKey: entity.StockKey{TenantID: demoTenant, StoreID: "store-downtown", ProductID: "prod-003"}, Quantity: 10},
		},
	}
}
