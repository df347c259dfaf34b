package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/bedrock-gateway/relay/model"
	"github.com/fuchsia74/bedrock-gateway/relay/registry"
)

// ErrorWrapper builds a typed relay error carrying the HTTP status to emit.
func ErrorWrapper(err error, errType string, statusCode int) *model.ErrorWithStatusCode {
	return &model.ErrorWithStatusCode{
		Error: model.Error{
			Message:  err.Error(),
			Type:     errType,
			Code:     errType,
			RawError: err,
		},
		StatusCode: statusCode,
	}
}

// InvalidRequestError reports a malformed client payload.
func InvalidRequestError(err error) *model.ErrorWithStatusCode {
	return ErrorWrapper(err, model.ErrTypeInvalidRequest, http.StatusBadRequest)
}

// ResolutionError maps a registry resolution failure onto the error
// taxonomy: unknown models are 404, anything else is a bad request.
func ResolutionError(err error) *model.ErrorWithStatusCode {
	if errors.Is(err, registry.ErrUnknownModel) {
		return ErrorWrapper(err, model.ErrTypeUnknownModel, http.StatusNotFound)
	}
	return InvalidRequestError(err)
}
