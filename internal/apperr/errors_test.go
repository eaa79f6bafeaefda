package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get student: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", ErrConflict, http.StatusConflict},
		{"upstream", fmt.Errorf("%w: dial tcp: refused", ErrUpstreamUnavailable), http.StatusBadGateway},
		{"storage", Storage("insert entry", errors.New("conn reset")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestStorageKeepsClassifiedErrors(t *testing.T) {
	require.Nil(t, Storage("op", nil))
	require.ErrorIs(t, Storage("op", ErrNotFound), ErrNotFound)

	inner := Storage("first", errors.New("boom"))
	outer := Storage("second", inner)
	var se *StorageError
	require.ErrorAs(t, outer, &se)
	require.Equal(t, "first", se.Op)
}

func TestFromValidator(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}
	err := FromValidator(validator.New().Struct(input{Email: "nope"}))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 2)
	require.Equal(t, "Name", ve.Fields[0].Field)
	require.Equal(t, "is required", ve.Fields[0].Message)
	require.Equal(t, "must be a valid email", ve.Fields[1].Message)

	plain := errors.New("plain")
	require.Equal(t, plain, FromValidator(plain))
}
