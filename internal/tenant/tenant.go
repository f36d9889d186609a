// Package tenant implements tenant administration: creating a tenant with
// a generated credential and deleting one with its full cascade. The
// credential itself is an opaque bearer token; verifying it against an
// inbound request is the excluded authentication middleware's job, not
// this package's.
package tenant

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/knoguchi/rag/internal/clock"
	"github.com/knoguchi/rag/internal/domain"
	"github.com/knoguchi/rag/internal/pipeline"
	"github.com/knoguchi/rag/internal/store"
)

// credentialBytes is the raw entropy size of a generated credential before
// hex encoding.
const credentialBytes = 32

// Admin implements tenant lifecycle operations: create (with credential
// generation) and delete (with full cascade via the Orchestrator).
type Admin struct {
	store store.MetadataStore
	orch  *pipeline.Orchestrator
	clock clock.Clock
}

// New wires an Admin over its collaborators.
func New(s store.MetadataStore, orch *pipeline.Orchestrator, c clock.Clock) *Admin {
	return &Admin{store: s, orch: orch, clock: c}
}

// Created carries a freshly created tenant and its credential, the only
// time the raw credential is ever available — only its hash is persisted.
type Created struct {
	Tenant     domain.Tenant
	Credential string
}

// CreateTenant generates a random credential, persists its hash, and
// returns the tenant row alongside the one-time raw credential.
func (a *Admin) CreateTenant(ctx context.Context, name string, rateLimit int) (Created, error) {
	credential, err := generateCredential()
	if err != nil {
		return Created{}, fmt.Errorf("generate tenant credential: %w", err)
	}
	hash := hashCredential(credential)

	t := domain.Tenant{
		ID:             uuid.New(),
		Name:           name,
		RateLimit:      rateLimit,
		CredentialHash: hash,
		CreatedAt:      a.clock.Now(),
	}
	if err := a.store.CreateTenant(ctx, &t); err != nil {
		return Created{}, fmt.Errorf("create tenant: %w", err)
	}

	return Created{Tenant: t, Credential: credential}, nil
}

// AuthenticateCredential resolves a raw credential to its tenant, the
// lookup the excluded auth middleware would call on every request.
func (a *Admin) AuthenticateCredential(ctx context.Context, credential string) (*domain.Tenant, error) {
	return a.store.GetTenantByCredentialHash(ctx, hashCredential(credential))
}

// DeleteTenant cascades deletion across every document, chunk, job, vector,
// and blob the tenant owns, then the tenant row itself.
func (a *Admin) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	return a.orch.DeleteTenant(ctx, tenantID)
}

func generateCredential() (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
