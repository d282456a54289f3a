package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopeTenantBill guards one bill per tenant and billing period, whatever the generation mode
	ScopeTenantBill Scope = "tenant_bill"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]any) string {
	keys := lo.Keys(params)
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:]))
}

// TenantBillKey is the key of the bill of a tenant for a billing period
func (g *Generator) TenantBillKey(workspaceID, tenantID uint, period string) string {
	return g.GenerateKey(ScopeTenantBill, map[string]any{
		"workspace_id": workspaceID,
		"tenant_id":    tenantID,
		"period":       NormalizePeriod(period),
	})
}

// NormalizePeriod folds case and whitespace so "March  2025" and "march 2025" collide
func NormalizePeriod(period string) string {
	return strings.ToLower(strings.Join(strings.Fields(period), " "))
}
