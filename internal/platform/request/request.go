// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away body decoding (JSON and multipart) and identity lookup,
ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/platform/validate"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
DecodeOptionalJSON behaves like [DecodeJSON] but accepts an absent or empty body,
leaving target untouched.
*/
func DecodeOptionalJSON(request *http.Request, target any) error {
	if request.Body == nil || request.ContentLength == 0 {
		return nil
	}

	err := json.NewDecoder(request.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return validate.ErrInvalidJSON
}

/*
ParseMultipart caps the body at maxBytes and parses a multipart form.
*/
func ParseMultipart(writer http.ResponseWriter, request *http.Request, maxBytes int64) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)

	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.ValidationError(fmt.Sprintf("Request body exceeds %d bytes", maxBytes))
		}
		return apperr.ValidationError("Invalid multipart form")
	}
	return nil
}

/*
StageFormFile copies the named multipart file into dir and returns its path.

Returns an empty path and nil error when the field carries no file. The caller
owns the staged file and must remove it.
*/
func StageFormFile(request *http.Request, field, dir string) (string, error) {
	file, header, err := request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.ValidationError("Invalid file field", apperr.FieldError{Field: field, Message: "Could not read file"})
	}
	defer file.Close()

	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperr.Internal(fmt.Errorf("upload_dir_create_failed: %w", err))
	}

	extension := strings.ToLower(filepath.Ext(header.Filename))
	staged, err := os.CreateTemp(dir, field+"-*"+extension)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("upload_stage_failed: %w", err))
	}
	defer staged.Close()

	if _, err := io.Copy(staged, file); err != nil {
		_ = os.Remove(staged.Name())
		return "", apperr.Internal(fmt.Errorf("upload_stage_copy_failed: %w", err))
	}

	return staged.Name(), nil
}

/*
Identity extracts the authenticated identity from the request context.

Returns nil if the request is not authenticated.
*/
func Identity(request *http.Request) *sec.Identity {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns the identity.

Returns:
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {
	identity := Identity(request)
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

/*
RequiredUserID returns the User ID of the currently logged-in user.
*/
func RequiredUserID(request *http.Request) (string, error) {
	identity, err := RequiredIdentity(request)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}
