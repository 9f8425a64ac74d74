// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/respond"
	"github.com/taibuivan/vidora/internal/platform/sec"
)

// AccessVerifier checks the signature and expiry of an access token.
//
// Declared here so the guard does not depend on the auth package.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*sec.TokenClaims, error)
}

// IdentityResolver turns a verified user id into the sanitized identity of a
// live account. It returns an [apperr.AppError] with code NOT_FOUND when the
// account no longer exists.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (*sec.Identity, error)
}

// RequireSession rejects requests without a valid access token.
//
// # Flow
//  1. Read the 'accessToken' cookie, else the 'Authorization: Bearer' header.
//  2. Verify it as an access token.
//  3. Resolve the decoded id to a live account.
//  4. Attach the [*sec.Identity] to the request context.
//
// Any failure short-circuits the chain with a 401.
func RequireSession(verifier AccessVerifier, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// 1. Token extraction
			token := ExtractAccessToken(request)
			if token == "" {
				respond.Error(writer, request, apperr.Unauthorized("Unauthorized request"))
				return
			}

			// 2. Signature and expiry
			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				ctxutil.GetLogger(ctx).DebugContext(ctx, "access_token_rejected", slog.String("reason", err.Error()))
				respond.Error(writer, request, apperr.Unauthorized("Invalid access token"))
				return
			}

			// 3. Identity resolution
			identity, err := resolver.ResolveIdentity(ctx, claims.UserID)
			if err != nil {
				if apperr.HasCode(err, apperr.CodeNotFound) {
					respond.Error(writer, request, apperr.Unauthorized("Invalid access token"))
					return
				}
				respond.Error(writer, request, err)
				return
			}

			// 4. Context injection, with the user id on every later log line
			ctx = ctxutil.WithAuthUser(ctx, identity)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", identity.UserID)))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// ExtractAccessToken returns the access token from the session cookie or the
// bearer header, in that order. It returns "" when neither carries one.
func ExtractAccessToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := request.Header.Get(constants.HeaderAuthorization)
	if len(header) > len(constants.BearerPrefix) && strings.EqualFold(header[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		return strings.TrimSpace(header[len(constants.BearerPrefix):])
	}

	return ""
}
