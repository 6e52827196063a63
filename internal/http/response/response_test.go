package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()

	OK(w, map[string]string{"id": "book-1"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.InDelta(t, 200, body["code"], 0)
	assert.Equal(t, "OK", body["message"])
	assert.Equal(t, map[string]any{"id": "book-1"}, body["data"])
	assert.NotContains(t, body, "errors")
	assert.NotContains(t, body, "error_code")
}

func TestSuccess_EmptyListKeepsData(t *testing.T) {
	raw, err := json.Marshal(Success(http.StatusOK, []string{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","code":200,"message":"OK","data":[]}`, string(raw))
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainerrors.ValidationWithDetails("invalid title", map[string]string{"title": "This field is required."})

	HandleError(w, err, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "VALIDATION", body["error_code"])
	assert.Equal(t, map[string]any{"title": []any{"This field is required."}}, body["errors"])
	assert.NotContains(t, body, "data")
}

func TestFailure_FieldErrorsAreLists(t *testing.T) {
	tests := []struct {
		name    string
		details any
		want    string
	}{
		{"single messages", map[string]string{"book": "This field is required."}, `{"book":["This field is required."]}`},
		{"message lists", map[string][]string{"isbn": {"Enter a valid ISBN.", "Too long."}}, `{"isbn":["Enter a valid ISBN.","Too long."]}`},
		{"field errors", FieldErrors{"q": {"Required."}}, `{"q":["Required."]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(Failure(http.StatusBadRequest, domainerrors.CodeValidation, "invalid", tt.details).Errors)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestFailure_EmptyDetailsOmitted(t *testing.T) {
	raw, err := json.Marshal(Failure(http.StatusBadRequest, domainerrors.CodeValidation, "invalid", map[string]string{}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"errors"`)
}

func TestHandleError_Conflict(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domainerrors.OutOfStockf("no copies of %q", "Dune"), nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OUT_OF_STOCK", body["error_code"])
	assert.InDelta(t, 409, body["code"], 0)
}

func TestHandleError_UnknownErrorIsHidden(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("disk on fire"), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL", body["error_code"])
	assert.Equal(t, "internal server error", body["message"])
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	TooManyRequests(w, "slow down", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["error_code"])
}
