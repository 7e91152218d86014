package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/rfq-router/pkg/secrets"
)

// AdminTokenResolver resolves the admin API token from AWS Secrets Manager,
// caching it locally to avoid a fetch on every admin call. The secret is a
// JSON map holding a "token" key.
type AdminTokenResolver struct {
	logger     *zap.Logger
	secretName string
	provider   pkgsecrets.Provider
	cache      *pkgsecrets.Cache[string]
}

// NewAdminTokenResolver constructs a resolver for the named secret.
func NewAdminTokenResolver(
	logger *zap.Logger,
	secretName string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[string],
) *AdminTokenResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminTokenResolver{
		logger:     logger,
		secretName: secretName,
		provider:   provider,
		cache:      cache,
	}
}

// Resolve fetches or returns the cached admin token.
func (r *AdminTokenResolver) Resolve(ctx context.Context) (string, error) {
	if token, ok := r.cache.Get(r.secretName); ok {
		return token, nil
	}

	secretMap, err := r.provider.GetSecret(ctx, r.secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", r.secretName),
			zap.Error(err))
		return "", fmt.Errorf("resolve admin token: %w", err)
	}

	token, ok := secretMap["token"]
	if !ok || token == "" {
		return "", fmt.Errorf("secret %q has no token field", r.secretName)
	}

	r.cache.Put(r.secretName, token)
	r.logger.Info("aws.admin_token_resolved", zap.String("key", r.secretName))
	return token, nil
}
