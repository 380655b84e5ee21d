package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", entity.NewValidation("email is required")
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", entity.NewValidation("invalid email %q", email)
	}
	return normalized, nil
}

// ResolveGuest returns the account for email in tenantID, provisioning a
// CUSTOMER account with an unusable password when none exists. The boolean
// reports whether the account was created. It must run inside the checkout
// unit of work so a failed checkout leaves no account behind.
func ResolveGuest(ctx context.Context, accounts repository.AccountRepository, tenantID, email string, now time.Time) (*entity.Account, bool, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	existing, err := findGuest(ctx, accounts, tenantID, email)
	if err != nil || existing != nil {
		return existing, false, err
	}

	hash, err := randomPasswordHash()
	if err != nil {
		return nil, false, err
	}
	account := &entity.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
		TenantID:     tenantID,
		CreatedAt:    now,
	}

	created, err := accounts.CreateIfAbsent(ctx, account)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create guest account: %w", err)
	}
	if created {
		return account, true, nil
	}

	// A concurrent checkout registered the address first.
	existing, err = findGuest(ctx, accounts, tenantID, email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("guest account %s vanished after insert conflict", email)
	}
	return existing, false, nil
}

func findGuest(ctx context.Context, accounts repository.AccountRepository, tenantID, email string) (*entity.Account, error) {
	account, err := accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %s: %w", email, err)
	}
	if err := CheckTenant(tenantID, account.TenantID, "account", email); err != nil {
		return nil, err
	}
	return account, nil
}

// randomPasswordHash hashes a discarded random secret so the account cannot
// log in until a password is set.
func randomPasswordHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate guest secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash guest secret: %w", err)
	}
	return string(hash), nil
}
