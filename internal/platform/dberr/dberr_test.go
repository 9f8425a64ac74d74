// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/dberr"
)

/*
TestWrap classifies driver errors into application error kinds.
*/
func TestWrap(t *testing.T) {
	uniqueErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"no_rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"unique_violation", uniqueErr, apperr.CodeConflict},
		{"other_pg_error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, apperr.CodeInternal},
		{"plain_error", errors.New("connection reset"), apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "User", "user_lookup_failed")
			assert.True(t, apperr.HasCode(wrapped, tt.wantCode))
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "User", "noop"))
}
