package service

import (
	"context"
	"crypto/subtle"

	"github.com/loomworks/careerlens/internal/domain"
)

// StaticTokenValidator resolves bearer tokens against a fixed token to
// owner-id map loaded from configuration.
type StaticTokenValidator struct {
	tokens map[string]string
}

func NewStaticTokenValidator(tokens map[string]string) *StaticTokenValidator {
	return &StaticTokenValidator{tokens: tokens}
}

// ValidateToken returns the owner id bound to the token. Comparison is
// constant time to avoid leaking token prefixes.
func (v *StaticTokenValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	for candidate, ownerID := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return ownerID, nil
		}
	}
	return "", domain.NewDomainError(domain.ErrCodeValidation, "unknown token")
}
