package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the standard
// envelope. Error bodies become error envelopes, everything else is data.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = 200
	}

	switch body := v.(type) {
	case response.Envelope, *response.Envelope:
		return v, nil
	case *APIError:
		return response.Failure(code, domainerrors.Code(body.Code), body.Message, body.Details), nil
	case *domainerrors.Error:
		if body.Code == domainerrors.CodeInternal {
			return response.Failure(code, body.Code, "internal server error", nil), nil
		}
		return response.Failure(code, body.Code, body.Message, body.Details), nil
	case error:
		return response.Failure(code, domainerrors.Code(statusToCode(code)), body.Error(), nil), nil
	}

	if code >= 400 {
		return response.Failure(code, domainerrors.Code(statusToCode(code)), "Operation failed", v), nil
	}
	return response.Success(code, v), nil
}
