package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

type sampleBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","password":"longenough"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	require.Equal(t, "a@b.co", body.Email)
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeBadRequest, typed.Code())
	details := typed.Details().(map[string]string)
	require.Equal(t, "must be a valid email", details["email"])
	require.Equal(t, "must be at least 8", details["password"])
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndEmpty(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","password":"longenough","role":"admin"}`))
	var body sampleBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeBadRequest))

	req = httptest.NewRequest("POST", "/", strings.NewReader(``))
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
	require.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	require.Nil(t, SanitizeOptional(nil, 10))
	blank := "   "
	require.Nil(t, SanitizeOptional(&blank, 10))
	note := " leave at gate "
	require.Equal(t, "leave at gate", *SanitizeOptional(&note, 0))
}
