// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/validate"
)

/*
TestValidator_MaxBytes bounds the encoded length, so multi-byte characters count more than once.
*/
func TestValidator_MaxBytes(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"under_limit", "abcd", false},
		{"at_limit", "abcdefgh", false},
		{"over_limit", "abcdefghi", true},
		{"multibyte_over_limit", "ééééé", true}, // five runes, ten bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			err := v.MaxBytes("password", tt.value, 8).Err()

			if !tt.hasError {
				assert.NoError(t, err)
				return
			}

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, apperr.CodeValidation, ae.Code)
			assert.Equal(t, "password", ae.Details[0].Field)
			assert.Equal(t, "Maximum 8 bytes", ae.Details[0].Message)
		})
	}
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		MaxBytes("password", "too-long", 3).
		Custom("avatar", true, "Avatar file is required").
		Custom("cover", false, "never reported").
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 2)
	assert.Equal(t, "avatar", ae.Details[1].Field)
	assert.Equal(t, "Avatar file is required", ae.Details[1].Message)

	assert.NoError(t, (&validate.Validator{}).Custom("avatar", false, "unused").Err())
}

type signupInput struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required,max=8"`
	NewPassword string `json:"new_password" validate:"required"`
	Ignored     string `json:"-"`
}

/*
TestStruct maps tag failures onto JSON field names.
*/
func TestStruct(t *testing.T) {
	assert.NoError(t, validate.Struct(signupInput{Email: "a@x.com", Username: "alice", NewPassword: "pw1"}))

	err := validate.Struct(signupInput{Email: "nope", Username: "much-too-long"})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeValidation, ae.Code)

	messages := map[string]string{}
	for _, detail := range ae.Details {
		messages[detail.Field] = detail.Message
	}
	assert.Equal(t, "Must be a valid email address", messages["email"])
	assert.Equal(t, "Maximum 8 characters", messages["username"])
	assert.Equal(t, "This field is required", messages["new_password"])
}

/*
TestStruct_NotAStruct reports misuse as an internal error rather than a client error.
*/
func TestStruct_NotAStruct(t *testing.T) {
	err := validate.Struct("plain string")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
}
