package utils

import (
	"context"
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	relaymodel "github.com/fuchsia74/bedrock-gateway/relay/model"
)

// WrapErr classifies a Bedrock call failure into the gateway error taxonomy.
// Upstream detail is redacted to the exception name; the raw error is kept
// out of the JSON body and only reaches logs.
func WrapErr(err error) *relaymodel.ErrorWithStatusCode {
	if err == nil {
		return nil
	}

	statusCode := http.StatusBadGateway
	errType := relaymodel.ErrTypeUpstream
	message := "upstream call failed"

	var throttled *types.ThrottlingException
	var modelTimeout *types.ModelTimeoutException
	var notReady *types.ModelNotReadyException
	var validation *types.ValidationException
	var accessDenied *types.AccessDeniedException
	var notFound *types.ResourceNotFoundException
	var apiErr smithy.APIError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
		errType = relaymodel.ErrTypeTimeout
		message = "upstream call exceeded the time budget"
	case errors.As(err, &throttled):
		statusCode = http.StatusTooManyRequests
		errType = relaymodel.ErrTypeUpstreamThrottled
		message = "upstream throttled the request, retry later"
	case errors.As(err, &modelTimeout):
		statusCode = http.StatusGatewayTimeout
		errType = relaymodel.ErrTypeTimeout
		message = "model invocation timed out"
	case errors.As(err, &notReady):
		statusCode = http.StatusTooManyRequests
		errType = relaymodel.ErrTypeUpstreamThrottled
		message = "model is not ready, retry later"
	case errors.As(err, &validation):
		statusCode = http.StatusBadRequest
		errType = relaymodel.ErrTypeInvalidRequest
		message = "upstream rejected the request payload"
	case errors.As(err, &accessDenied):
		message = "upstream denied access to the model"
	case errors.As(err, &notFound):
		statusCode = http.StatusNotFound
		errType = relaymodel.ErrTypeUnknownModel
		message = "upstream does not know the requested model"
	case errors.As(err, &apiErr):
		message = "upstream error: " + apiErr.ErrorCode()
	}

	wrapped := &relaymodel.ErrorWithStatusCode{
		StatusCode: statusCode,
		Error: relaymodel.Error{
			Message:  message,
			Type:     errType,
			RawError: err,
		},
	}
	if statusCode == http.StatusTooManyRequests {
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPResponse() != nil {
			wrapped.RetryAfter = respErr.HTTPResponse().Header.Get("Retry-After")
		}
	}
	return wrapped
}

// DecodeErr reports a native response or chunk the adapter could not
// translate.
func DecodeErr(err error) *relaymodel.ErrorWithStatusCode {
	return &relaymodel.ErrorWithStatusCode{
		StatusCode: http.StatusBadGateway,
		Error: relaymodel.Error{
			Message:  err.Error(),
			Type:     relaymodel.ErrTypeDecode,
			RawError: err,
		},
	}
}

// InvalidRequestErr reports a client payload the adapter cannot translate.
func InvalidRequestErr(err error) *relaymodel.ErrorWithStatusCode {
	return &relaymodel.ErrorWithStatusCode{
		StatusCode: http.StatusBadRequest,
		Error: relaymodel.Error{
			Message:  err.Error(),
			Type:     relaymodel.ErrTypeInvalidRequest,
			RawError: err,
		},
	}
}
