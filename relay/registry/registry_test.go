package registry

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/fuchsia74/bedrock-gateway/common/config"
)

func withRoutingConfig(t *testing.T, defaultModel string, crossRegion, appProfiles bool, region string) {
	t.Helper()
	prevDefault := config.DefaultModel
	prevCross := config.EnableCrossRegionInference
	prevApp := config.EnableApplicationInferenceProfiles
	prevRegion := config.AWSRegion
	config.DefaultModel = defaultModel
	config.EnableCrossRegionInference = crossRegion
	config.EnableApplicationInferenceProfiles = appProfiles
	config.AWSRegion = region
	t.Cleanup(func() {
		config.DefaultModel = prevDefault
		config.EnableCrossRegionInference = prevCross
		config.EnableApplicationInferenceProfiles = prevApp
		config.AWSRegion = prevRegion
	})
}

func TestResolveExactMatch(t *testing.T) {
	withRoutingConfig(t, "", false, false, "us-east-1")

	descriptor, resolved, err := Resolve(context.Background(), "claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	require.Equal(t, FamilyClaude, descriptor.Family)
	require.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", resolved)
}

func TestResolveAcceptsRawBedrockID(t *testing.T) {
	withRoutingConfig(t, "", false, false, "us-east-1")

	descriptor, resolved, err := Resolve(context.Background(), "anthropic.claude-3-5-sonnet-20241022-v2:0")
	require.NoError(t, err)
	require.Equal(t, "claude-3-5-sonnet-20241022", descriptor.ID)
	require.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", resolved)
}

func TestResolveIsIdempotent(t *testing.T) {
	withRoutingConfig(t, "", true, false, "us-east-1")

	d1, r1, err1 := Resolve(context.Background(), "claude-3-5-sonnet-20241022")
	d2, r2, err2 := Resolve(context.Background(), "claude-3-5-sonnet-20241022")
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, d1, d2)
	require.Equal(t, r1, r2)
}

func TestResolveDefaultModelSubstitution(t *testing.T) {
	withRoutingConfig(t, "claude-3-haiku-20240307", false, false, "us-east-1")

	descriptor, _, err := Resolve(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "claude-3-haiku-20240307", descriptor.ID)
}

func TestResolveUnknownModel(t *testing.T) {
	withRoutingConfig(t, "", false, false, "us-east-1")

	_, _, err := Resolve(context.Background(), "gpt-42")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownModel))

	_, _, err = Resolve(context.Background(), "")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownModel))
}

func TestResolveCrossRegionRewrite(t *testing.T) {
	withRoutingConfig(t, "", true, false, "us-east-1")

	_, resolved, err := Resolve(context.Background(), "claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	require.Equal(t, "us.anthropic.claude-3-5-sonnet-20241022-v2:0", resolved)
}

func TestResolveApplicationProfileRewrite(t *testing.T) {
	withRoutingConfig(t, "", false, true, "us-east-1")

	arn := "arn:aws:bedrock:us-east-1:123456789012:application-inference-profile/abc"
	profiles := map[string]string{
		"anthropic.claude-3-5-sonnet-20241022-v2:0": arn,
	}
	prev := applicationProfiles.Load()
	applicationProfiles.Store(&profiles)
	t.Cleanup(func() { applicationProfiles.Store(prev) })

	_, resolved, err := Resolve(context.Background(), "claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	require.Equal(t, arn, resolved)

	// Models without a discovered profile keep the raw id.
	_, resolved, err = Resolve(context.Background(), "claude-3-haiku-20240307")
	require.NoError(t, err)
	require.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", resolved)
}

func TestListModelsSortedAndListable(t *testing.T) {
	models := ListModels()
	require.NotEmpty(t, models)
	for i := 1; i < len(models); i++ {
		require.Less(t, models[i-1].ID, models[i].ID)
	}
	for _, descriptor := range models {
		require.True(t, descriptor.Listable)
	}
}

func TestChatAndEmbeddingAdaptorSplit(t *testing.T) {
	_, ok := ChatAdaptor(FamilyClaude)
	require.True(t, ok)
	_, ok = ChatAdaptor(FamilyTitan)
	require.False(t, ok)

	_, ok = EmbeddingAdaptor(FamilyTitan)
	require.True(t, ok)
	_, ok = EmbeddingAdaptor(FamilyClaude)
	require.False(t, ok)
}
