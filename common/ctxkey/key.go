// Package ctxkey declares the gin context keys shared across middleware,
// controllers, and adapters.
package ctxkey

const (
	// RequestId is a per-request unique identifier, also echoed back in the
	// X-Request-Id response header.
	RequestId = "X-Request-Id"

	// RequestModel is the model id from the raw client request.
	// Set in: relay controller after binding. Read in: adapters for response labeling.
	RequestModel = "request_model"

	// ResolvedModel is the Bedrock model id (or profile id/ARN) after the
	// registry applied routing policy.
	ResolvedModel = "resolved_model"

	// ConvertedRequest holds the family-native request built by the adapter,
	// consumed by the family handler that performs the Bedrock call.
	ConvertedRequest = "converted_request"
)
