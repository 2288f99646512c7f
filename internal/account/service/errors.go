package service

import (
	"net/http"

	commonerrors "github.com/akentev/account-service/internal/common/errors"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; the single message keeps account existence private.
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"Wrong email or password",
	)

	ErrEmailTaken = commonerrors.NewDomainError(
		"EMAIL_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"E-mail already registered",
	)

	ErrUserNotFound = commonerrors.NewDomainError(
		"USER_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"User not found",
	)

	ErrAdminRequired = commonerrors.NewDomainError(
		"ADMIN_REQUIRED",
		commonerrors.CategoryForbidden,
		http.StatusForbidden,
		"Missing admin permissions",
	)

	ErrStoreFailure = commonerrors.NewDomainError(
		"STORE_FAILURE",
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		"failed to access user store",
	)
)
