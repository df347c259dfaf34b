// Package registry owns the known-model table: which client-facing model
// names are served, which Bedrock model they map to, and which family
// adapter handles them. The table is refreshed from the Bedrock discovery
// API and swapped atomically; readers never observe a partial update.
package registry

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/bedrock-gateway/common/config"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/claude"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/cohere"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/llama3"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/mistral"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/titan"
	"github.com/fuchsia74/bedrock-gateway/relay/adaptor/utils"
)

// Family tags the adapter responsible for a model. Dispatch happens on this
// tag, never on payload shape.
type Family string

const (
	FamilyClaude  Family = "claude"
	FamilyLlama3  Family = "llama3"
	FamilyMistral Family = "mistral"
	FamilyTitan   Family = "titan"
	FamilyCohere  Family = "cohere"
)

// ModelDescriptor describes one entry of the known-model table.
type ModelDescriptor struct {
	// ID is the client-facing model name.
	ID string
	// BedrockModelID is the backend id before routing rewrite.
	BedrockModelID string
	OwnedBy        string
	Family         Family
	Embedding      bool
	// Listable models appear in the model-listing endpoint. Discovery
	// refresh narrows this to models the account can actually reach.
	Listable bool
}

// ErrUnknownModel reports a model id with no table entry and no default.
var ErrUnknownModel = errors.New("unknown model")

var (
	chatAdaptors = map[Family]adaptor.Adaptor{
		FamilyClaude:  &claude.Adaptor{},
		FamilyLlama3:  &llama3.Adaptor{},
		FamilyMistral: &mistral.Adaptor{},
	}
	embeddingAdaptors = map[Family]adaptor.EmbeddingAdaptor{
		FamilyTitan:  &titan.Adaptor{},
		FamilyCohere: &cohere.Adaptor{},
	}

	modelTable atomic.Pointer[map[string]ModelDescriptor]

	// applicationProfiles maps a Bedrock model id to its
	// application-inference-profile ARN, discovered at refresh time.
	applicationProfiles atomic.Pointer[map[string]string]
)

func init() {
	table := buildSeedTable()
	modelTable.Store(&table)
	empty := map[string]string{}
	applicationProfiles.Store(&empty)
}

func buildSeedTable() map[string]ModelDescriptor {
	table := make(map[string]ModelDescriptor)
	add := func(models map[string]string, family Family, ownedBy string, embedding bool) {
		for id, bedrockID := range models {
			table[id] = ModelDescriptor{
				ID:             id,
				BedrockModelID: bedrockID,
				OwnedBy:        ownedBy,
				Family:         family,
				Embedding:      embedding,
				Listable:       true,
			}
		}
	}
	add(claude.AwsModelIDMap, FamilyClaude, "anthropic", false)
	add(llama3.AwsModelIDMap, FamilyLlama3, "meta", false)
	add(mistral.AwsModelIDMap, FamilyMistral, "mistralai", false)
	add(titan.AwsModelIDMap, FamilyTitan, "amazon", true)
	add(cohere.AwsModelIDMap, FamilyCohere, "cohere", true)
	return table
}

// Resolve maps a client model id to its descriptor and the backend model id
// after routing rewrite. An empty client id falls back to the configured
// default model; an unresolvable id yields ErrUnknownModel.
func Resolve(ctx context.Context, clientModelID string) (ModelDescriptor, string, error) {
	if clientModelID == "" {
		if config.DefaultModel == "" {
			return ModelDescriptor{}, "", errors.Wrap(ErrUnknownModel, "no model specified and no default configured")
		}
		clientModelID = config.DefaultModel
	}

	table := *modelTable.Load()
	descriptor, ok := table[clientModelID]
	if !ok {
		// Accept raw Bedrock ids so clients can address models by backend
		// name directly.
		descriptor, ok = lookupByBedrockID(table, clientModelID)
		if !ok {
			return ModelDescriptor{}, "", errors.Wrapf(ErrUnknownModel, "model %q", clientModelID)
		}
	}

	resolved := descriptor.BedrockModelID
	switch {
	case config.EnableApplicationInferenceProfiles:
		if arn, found := (*applicationProfiles.Load())[descriptor.BedrockModelID]; found {
			resolved = arn
		}
	case config.EnableCrossRegionInference:
		resolved = utils.ConvertModelID2CrossRegionProfile(ctx, descriptor.BedrockModelID, config.AWSRegion)
	}

	return descriptor, resolved, nil
}

func lookupByBedrockID(table map[string]ModelDescriptor, bedrockID string) (ModelDescriptor, bool) {
	for _, descriptor := range table {
		if descriptor.BedrockModelID == bedrockID {
			return descriptor, true
		}
	}
	return ModelDescriptor{}, false
}

// ChatAdaptor returns the chat adapter for a family.
func ChatAdaptor(family Family) (adaptor.Adaptor, bool) {
	a, ok := chatAdaptors[family]
	return a, ok
}

// EmbeddingAdaptor returns the embedding adapter for a family.
func EmbeddingAdaptor(family Family) (adaptor.EmbeddingAdaptor, bool) {
	a, ok := embeddingAdaptors[family]
	return a, ok
}

// ListModels returns the listable entries of the current table, sorted by
// client-facing id.
func ListModels() []ModelDescriptor {
	table := *modelTable.Load()
	models := make([]ModelDescriptor, 0, len(table))
	for _, descriptor := range table {
		if descriptor.Listable {
			models = append(models, descriptor)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

// GetModel returns the descriptor for one client-facing model id.
func GetModel(clientModelID string) (ModelDescriptor, bool) {
	table := *modelTable.Load()
	descriptor, ok := table[clientModelID]
	return descriptor, ok
}
