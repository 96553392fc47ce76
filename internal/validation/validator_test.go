package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	User   string `json:"user" validate:"required"`
	Token  string `json:"token" validate:"required"`
	Expire int    `json:"expire,omitempty" validate:"omitempty,min=1"`
	Zone   string `json:"zone,omitempty" validate:"omitempty,numeric"`
	Kind   string `json:"kind,omitempty" validate:"omitempty,oneof=core x509"`
}

func TestNew(t *testing.T) {
	v := New()
	assert.NotNil(t, v)
	assert.NotNil(t, v.structValidator)
}

func TestCheck_Valid(t *testing.T) {
	result := New().Check(&loginBody{User: "oneadmin", Token: "pw", Expire: 60, Zone: "0"})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestCheck_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    loginBody
		field   string
		message string
	}{
		{"missing user", loginBody{Token: "pw"}, "user", "user is required"},
		{"missing token", loginBody{User: "u"}, "token", "token is required"},
		{"negative expire", loginBody{User: "u", Token: "pw", Expire: -5}, "expire", "must be at least 1"},
		{"alpha zone", loginBody{User: "u", Token: "pw", Zone: "abc"}, "zone", "must be numeric"},
		{"bad kind", loginBody{User: "u", Token: "pw", Kind: "ldap"}, "kind", "must be one of: core, x509"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().Check(&tt.body)
			assert.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.field, result.Errors[0].Field)
			assert.Equal(t, tt.message, result.Errors[0].Message)
		})
	}
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&loginBody{User: "u", Token: "pw"}))

	err := v.Validate(&loginBody{})
	require.Error(t, err)

	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 2)
	assert.Equal(t, map[string]string{"user": "user is required", "token": "token is required"}, errs.Fields())
	assert.Equal(t, "user: user is required; token: token is required", err.Error())
}

func TestCheck_NotAStruct(t *testing.T) {
	result := New().Check("string")
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "document", result.Errors[0].Field)
}
