package utils

import (
	"context"
	"strings"
	"sync/atomic"
)

// RegionMapping orders the inference-profile prefixes applicable to each
// source region, most specific first. Regions absent from the map cannot use
// cross-region inference.
var RegionMapping = map[string][]string{
	"us-east-1":      {"us", "global"},
	"us-east-2":      {"us", "global"},
	"us-west-2":      {"us", "global"},
	"ca-central-1":   {"us", "global"},
	"sa-east-1":      {"us", "global"},
	"us-gov-east-1":  {"us-gov"},
	"us-gov-west-1":  {"us-gov"},
	"eu-west-1":      {"eu", "global"},
	"eu-west-2":      {"eu", "global"},
	"eu-west-3":      {"eu", "global"},
	"eu-central-1":   {"eu", "global"},
	"eu-north-1":     {"eu", "global"},
	"ap-southeast-1": {"apac", "global"},
	"ap-southeast-2": {"au", "apac", "global"},
	"ap-northeast-1": {"jp", "apac", "global"},
	"ap-northeast-2": {"apac", "global"},
	"ap-south-1":     {"apac", "global"},
}

// CrossRegionInferences seeds the known regional inference-profile ids.
// The registry refresh merges the profiles actually present in the account's
// region on top of this list.
var CrossRegionInferences = []string{
	"us.anthropic.claude-3-haiku-20240307-v1:0",
	"us.anthropic.claude-3-sonnet-20240229-v1:0",
	"us.anthropic.claude-3-opus-20240229-v1:0",
	"us.anthropic.claude-3-5-haiku-20241022-v1:0",
	"us.anthropic.claude-3-5-sonnet-20240620-v1:0",
	"us.anthropic.claude-3-5-sonnet-20241022-v2:0",
	"us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	"us.anthropic.claude-sonnet-4-20250514-v1:0",
	"us.anthropic.claude-opus-4-20250514-v1:0",
	"us.anthropic.claude-opus-4-1-20250805-v1:0",
	"us.meta.llama3-1-8b-instruct-v1:0",
	"us.meta.llama3-1-70b-instruct-v1:0",
	"us.meta.llama3-2-1b-instruct-v1:0",
	"us.meta.llama3-2-3b-instruct-v1:0",
	"us.meta.llama3-2-11b-instruct-v1:0",
	"us.meta.llama3-2-90b-instruct-v1:0",
	"us.meta.llama3-3-70b-instruct-v1:0",
	"us.mistral.pixtral-large-2502-v1:0",
	"eu.anthropic.claude-3-haiku-20240307-v1:0",
	"eu.anthropic.claude-3-sonnet-20240229-v1:0",
	"eu.anthropic.claude-3-5-sonnet-20240620-v1:0",
	"eu.anthropic.claude-3-7-sonnet-20250219-v1:0",
	"eu.anthropic.claude-sonnet-4-20250514-v1:0",
	"eu.meta.llama3-2-1b-instruct-v1:0",
	"eu.meta.llama3-2-3b-instruct-v1:0",
	"apac.anthropic.claude-3-haiku-20240307-v1:0",
	"apac.anthropic.claude-3-5-sonnet-20240620-v1:0",
	"apac.anthropic.claude-3-7-sonnet-20250219-v1:0",
	"apac.anthropic.claude-sonnet-4-20250514-v1:0",
	"global.anthropic.claude-sonnet-4-20250514-v1:0",
	"global.anthropic.claude-sonnet-4-5-20250929-v1:0",
}

// profileSet holds the effective set of known profile ids; replaced
// atomically when the registry refresh discovers live profiles.
var profileSet atomic.Pointer[map[string]bool]

func init() {
	set := make(map[string]bool, len(CrossRegionInferences))
	for _, id := range CrossRegionInferences {
		set[id] = true
	}
	profileSet.Store(&set)
}

// MergeProfiles adds discovered inference-profile ids to the known set. The
// table is rebuilt and swapped atomically; readers never observe a partial
// update.
func MergeProfiles(profileIDs []string) {
	old := *profileSet.Load()
	set := make(map[string]bool, len(old)+len(profileIDs))
	for id := range old {
		set[id] = true
	}
	for _, id := range profileIDs {
		if id != "" {
			set[id] = true
		}
	}
	profileSet.Store(&set)
}

// getRegionPrefix returns the primary profile prefix for a region, empty for
// regions without cross-region inference.
func getRegionPrefix(region string) string {
	prefixes, ok := RegionMapping[region]
	if !ok || len(prefixes) == 0 {
		return ""
	}
	return prefixes[0]
}

// ConvertModelID2CrossRegionProfile rewrites a model id to its regional
// inference-profile form when one exists for the source region. Unsupported
// models and regions pass through unchanged.
func ConvertModelID2CrossRegionProfile(_ context.Context, model, region string) string {
	if strings.HasPrefix(model, "arn:") {
		return model
	}
	prefixes, ok := RegionMapping[region]
	if !ok {
		return model
	}

	set := *profileSet.Load()
	// A global profile serves any region that lists it; prefer it when the
	// geography-specific profile is absent.
	for _, prefix := range prefixes {
		if candidate := prefix + "." + model; set[candidate] {
			return candidate
		}
	}
	return model
}
