package registry

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"

	"github.com/fuchsia74/bedrock-gateway/common/config"
	"github.com/fuchsia74/bedrock-gateway/common/logger"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
)

// ControlPlaneClient is the slice of the Bedrock control-plane API the
// refresher needs.
type ControlPlaneClient interface {
	ListFoundationModels(ctx context.Context, params *bedrock.ListFoundationModelsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListFoundationModelsOutput, error)
	ListInferenceProfiles(ctx context.Context, params *bedrock.ListInferenceProfilesInput, optFns ...func(*bedrock.Options)) (*bedrock.ListInferenceProfilesOutput, error)
}

// StartRefresher refreshes the model table once, then on the configured
// interval until ctx is done. Discovery failures keep the last-known table.
func StartRefresher(ctx context.Context, cli ControlPlaneClient) {
	lg := logger.Logger

	if err := Refresh(ctx, cli); err != nil {
		lg.Warn("initial model discovery failed, serving seed table", zap.Error(err))
	}

	go func() {
		ticker := time.NewTicker(config.ModelRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := Refresh(ctx, cli); err != nil {
					lg.Warn("model discovery failed, serving stale table", zap.Error(err))
				}
			}
		}
	}()
}

// Refresh queries the discovery API and atomically replaces the model table.
// Models the account cannot reach directly stay in the table but are marked
// unlistable unless a cross-region profile covers them.
func Refresh(ctx context.Context, cli ControlPlaneClient) error {
	available, err := fetchFoundationModels(ctx, cli)
	if err != nil {
		return errors.Wrap(err, "list foundation models")
	}

	systemProfiles, appProfiles, err := fetchInferenceProfiles(ctx, cli)
	if err != nil {
		return errors.Wrap(err, "list inference profiles")
	}

	if len(systemProfiles) > 0 {
		utils.MergeProfiles(systemProfiles)
	}
	applicationProfiles.Store(&appProfiles)

	table := buildSeedTable()
	for id, descriptor := range table {
		descriptor.Listable = available[descriptor.BedrockModelID] ||
			reachableViaProfile(descriptor.BedrockModelID, systemProfiles)
		table[id] = descriptor
	}
	modelTable.Store(&table)

	logger.Logger.Info("model table refreshed",
		zap.Int("foundation_models", len(available)),
		zap.Int("system_profiles", len(systemProfiles)),
		zap.Int("application_profiles", len(appProfiles)))
	return nil
}

func fetchFoundationModels(ctx context.Context, cli ControlPlaneClient) (map[string]bool, error) {
	output, err := cli.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, err
	}

	available := make(map[string]bool, len(output.ModelSummaries))
	for _, summary := range output.ModelSummaries {
		if summary.ModelLifecycle != nil &&
			summary.ModelLifecycle.Status != types.FoundationModelLifecycleStatusActive {
			continue
		}
		available[aws.ToString(summary.ModelId)] = true
	}
	return available, nil
}

func fetchInferenceProfiles(ctx context.Context, cli ControlPlaneClient) (systemProfiles []string, appProfiles map[string]string, err error) {
	appProfiles = make(map[string]string)

	for _, profileType := range []types.InferenceProfileType{
		types.InferenceProfileTypeSystemDefined,
		types.InferenceProfileTypeApplication,
	} {
		var nextToken *string
		for {
			output, listErr := cli.ListInferenceProfiles(ctx, &bedrock.ListInferenceProfilesInput{
				TypeEquals: profileType,
				MaxResults: aws.Int32(1000),
				NextToken:  nextToken,
			})
			if listErr != nil {
				return nil, nil, listErr
			}

			for _, summary := range output.InferenceProfileSummaries {
				if summary.Status != types.InferenceProfileStatusActive {
					continue
				}
				switch profileType {
				case types.InferenceProfileTypeSystemDefined:
					systemProfiles = append(systemProfiles, aws.ToString(summary.InferenceProfileId))
				case types.InferenceProfileTypeApplication:
					arn := aws.ToString(summary.InferenceProfileArn)
					for _, model := range summary.Models {
						if modelID := modelIDFromArn(aws.ToString(model.ModelArn)); modelID != "" {
							appProfiles[modelID] = arn
						}
					}
				}
			}

			nextToken = output.NextToken
			if nextToken == nil {
				break
			}
		}
	}
	return systemProfiles, appProfiles, nil
}

// modelIDFromArn extracts the model id from a foundation-model ARN, e.g.
// arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-haiku-...
func modelIDFromArn(arn string) string {
	const marker = "foundation-model/"
	idx := strings.LastIndex(arn, marker)
	if idx < 0 {
		return ""
	}
	return arn[idx+len(marker):]
}

func reachableViaProfile(bedrockModelID string, systemProfiles []string) bool {
	for _, profileID := range systemProfiles {
		if idx := strings.Index(profileID, "."); idx > 0 && profileID[idx+1:] == bedrockModelID {
			return true
		}
	}
	return false
}
