// Package secret resolves the gateway's bearer-key reference from AWS
// Secrets Manager, caching it for a bounded interval so authentication does
// not cost a Secrets Manager round trip per request.
package secret

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	gocache "github.com/patrickmn/go-cache"

	"github.com/fuchsia74/bedrock-gateway/common/config"
)

const cacheKey = "api_key_reference"

// Store is the narrow Secrets Manager surface the gateway consumes.
type Store interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider serves the current credential reference. A refresh replaces the
// cached value atomically; readers never observe a partial update. There is
// no fallback to a stale value: once the TTL lapses the next read performs a
// refresh attempt and fails if the store is unreachable.
type Provider struct {
	store     Store
	secretARN string
	staticKey string
	cache     *gocache.Cache
}

// NewProvider builds a provider backed by the given store. When secretARN is
// empty the static key is served without any store round trips.
func NewProvider(store Store, secretARN, staticKey string, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = config.SecretRefreshInterval
	}
	return &Provider{
		store:     store,
		secretARN: secretARN,
		staticKey: staticKey,
		cache:     gocache.New(ttl, 2*ttl),
	}
}

// Reference returns the bearer key the gateway compares presented
// credentials against.
func (p *Provider) Reference(ctx context.Context) (string, error) {
	if p.secretARN == "" {
		if p.staticKey == "" {
			return "", errors.New("no credential reference configured")
		}
		return p.staticKey, nil
	}

	if v, ok := p.cache.Get(cacheKey); ok {
		return v.(string), nil
	}

	out, err := p.store.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretARN),
	})
	if err != nil {
		return "", errors.Wrap(err, "get secret value")
	}

	value, err := extractKey(out)
	if err != nil {
		return "", err
	}

	p.cache.Set(cacheKey, value, gocache.DefaultExpiration)
	return value, nil
}

// extractKey accepts either a bare string secret or a JSON object with an
// "api_key" field, matching the common Secrets Manager conventions.
func extractKey(out *secretsmanager.GetSecretValueOutput) (string, error) {
	if out.SecretString == nil || *out.SecretString == "" {
		return "", errors.New("secret value is empty")
	}
	raw := strings.TrimSpace(*out.SecretString)

	if strings.HasPrefix(raw, "{") {
		var payload map[string]string
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return "", errors.Wrap(err, "unmarshal secret payload")
		}
		if key := payload["api_key"]; key != "" {
			return key, nil
		}
		return "", errors.New("secret payload has no api_key field")
	}

	return raw, nil
}
