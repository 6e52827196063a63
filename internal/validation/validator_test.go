package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

type bookRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	ISBN        string `json:"isbn" validate:"required,isbn"`
	TotalCopies int    `json:"total_copies" validate:"gte=0"`
}

type memberRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(bookRequest{Title: "Dune", ISBN: "978-0-441-01359-3", TotalCopies: 2}))
	assert.NoError(t, v.Validate(memberRequest{FirstName: "Ada", Email: "ada@example.com"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{"missing title", bookRequest{ISBN: "9780441013593"}, "title"},
		{"bad isbn checksum", bookRequest{Title: "Dune", ISBN: "9780441013594"}, "isbn"},
		{"negative copies", bookRequest{Title: "Dune", ISBN: "9780441013593", TotalCopies: -1}, "total_copies"},
		{"invalid email", memberRequest{FirstName: "Ada", Email: "not-an-email"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, 400, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(memberRequest{Email: "ada@example.com"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "first_name")
	assert.NotContains(t, err.Error(), "FirstName")
}
