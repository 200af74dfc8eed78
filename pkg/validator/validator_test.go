package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"required,max=10"`
	Kind    string `json:"kind" validate:"omitempty,oneof=info warning"`
	Skipped string `json:"-"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(samplePayload{UserID: "user-1", Title: "short", Kind: "info"})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(samplePayload{Title: "way too long title"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve, 2)

	byField := map[string]ValidationError{}
	for _, failure := range ve {
		byField[failure.Field] = failure
	}

	require.Equal(t, "required", byField["user_id"].Tag)
	require.Equal(t, "max", byField["title"].Tag)
	require.Equal(t, "10", byField["title"].Param)
}

func TestValidateStructOneOf(t *testing.T) {
	err := ValidateStruct(samplePayload{UserID: "user-1", Title: "ok", Kind: "bogus"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Equal(t, "kind", ve[0].Field)
	require.Equal(t, "oneof", ve[0].Tag)
}

func TestValidationErrorsMessage(t *testing.T) {
	require.Equal(t, "validation failed", ValidationErrors{}.Error())

	msg := ValidationErrors{
		{Field: "title", Tag: "max", Param: "10"},
		{Field: "user_id", Tag: "required"},
	}.Error()
	require.Contains(t, msg, "title failed on max=10")
	require.Contains(t, msg, "user_id failed on required")
}
