// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Form Fields

// Multipart field names accepted by the registration endpoint.
const (
	FormFullName   = "fullname"
	FormEmail      = "email"
	FormUsername   = "username"
	FormPassword   = "password"
	FormAvatar     = "avatar"
	FormCoverImage = "coverImage"
)

// FieldNewPassword is the JSON field carrying the replacement password.
const FieldNewPassword = "new_password"

// # Response Messages

const (
	MessageRegistered      = "User registered successfully"
	MessageLoggedIn        = "User logged in successfully"
	MessageLoggedOut       = "User logged out"
	MessageRefreshed       = "Access token refreshed"
	MessagePasswordChanged = "Password changed successfully"
	MessageCurrentUser     = "Current user fetched successfully"
)
