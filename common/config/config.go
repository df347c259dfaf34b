// Package config holds the process-wide configuration, loaded from the
// environment once at startup. Apart from the model table and the cached
// credential reference (which live elsewhere and are swapped atomically),
// everything here is immutable after Validate succeeds.
package config

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/bedrock-gateway/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// ServerPort overrides the default listen port when running inside
	// container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", "8080"))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// AWSRegion selects the Bedrock region. BEDROCK_REGION wins over the
	// standard AWS_REGION so the gateway can target a region different from
	// the one it runs in.
	AWSRegion = func() string {
		if r := strings.TrimSpace(env.String("BEDROCK_REGION", "")); r != "" {
			return r
		}
		return strings.TrimSpace(env.String("AWS_REGION", "us-east-1"))
	}()

	// DefaultModel is substituted when the client omits the model field.
	// Empty means requests without a model are rejected.
	DefaultModel = strings.TrimSpace(env.String("DEFAULT_MODEL", ""))

	// EnableCrossRegionInference rewrites resolved model ids to the regional
	// inference-profile form (us./eu./apac. prefixes) when a profile exists.
	EnableCrossRegionInference = env.Bool("ENABLE_CROSS_REGION_INFERENCE", false)
	// EnableApplicationInferenceProfiles rewrites resolved model ids to
	// application inference profile ARNs discovered from the control plane.
	// Mutually exclusive with EnableCrossRegionInference.
	EnableApplicationInferenceProfiles = env.Bool("ENABLE_APPLICATION_INFERENCE_PROFILES", false)
	// EnablePromptCaching passes cache_control hints through to model
	// families that support them. Off by default.
	EnablePromptCaching = env.Bool("ENABLE_PROMPT_CACHING", false)

	// APIKeySecretARN points at the Secrets Manager secret holding the
	// gateway bearer key. When empty, APIKey is used directly.
	APIKeySecretARN = strings.TrimSpace(env.String("API_KEY_SECRET_ARN", ""))
	// APIKey is the local fallback bearer key for deployments without
	// Secrets Manager access.
	APIKey = strings.TrimSpace(env.String("API_KEY", ""))
	// SecretRefreshInterval bounds how long the cached credential reference
	// is served before a Secrets Manager round trip is attempted again.
	SecretRefreshInterval = env.Duration("SECRET_REFRESH_INTERVAL", 10*time.Minute)

	// ModelRefreshInterval controls how often the model table is refreshed
	// from the Bedrock discovery API. Zero disables background refresh.
	ModelRefreshInterval = env.Duration("MODEL_REFRESH_INTERVAL", 10*time.Minute)

	// RelayTimeout bounds a single Bedrock call (seconds). Zero means no
	// gateway-side deadline beyond the surrounding deployment's budget.
	RelayTimeout = env.Int("RELAY_TIMEOUT", 0)

	// DefaultMaxToken is applied when the client omits max_tokens, since
	// several Bedrock families require an explicit limit.
	DefaultMaxToken = env.Int("DEFAULT_MAX_TOKEN", 2048)

	// EnablePrometheusMetrics exposes the /metrics endpoint when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)

	// ShutdownTimeoutSec specifies the graceful shutdown timeout (seconds)
	// for the HTTP server and in-flight streams.
	ShutdownTimeoutSec = env.Int("SHUTDOWN_TIMEOUT", 120)
)

// Validate rejects inconsistent configuration at process start, before any
// request is served.
func Validate() error {
	if err := validateRoutingFlags(EnableCrossRegionInference, EnableApplicationInferenceProfiles); err != nil {
		return err
	}
	if APIKeySecretARN == "" && APIKey == "" {
		return errors.New("either API_KEY_SECRET_ARN or API_KEY must be configured")
	}
	if RelayTimeout < 0 {
		return errors.Errorf("RELAY_TIMEOUT must not be negative, got %d", RelayTimeout)
	}
	return nil
}

// validateRoutingFlags enforces that the two model-id rewrite policies are
// never enabled together; they produce conflicting identifiers.
func validateRoutingFlags(crossRegion, applicationProfiles bool) error {
	if crossRegion && applicationProfiles {
		return errors.New("ENABLE_CROSS_REGION_INFERENCE and ENABLE_APPLICATION_INFERENCE_PROFILES are mutually exclusive")
	}
	return nil
}
