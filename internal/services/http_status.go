package services

import (
	"net/http"

	medishare_errors "medishare/pkg/errors"
)

func HTTPStatus(err error) int {
	switch medishare_errors.KindOf(err) {
	case medishare_errors.KindValidation:
		return http.StatusBadRequest
	case medishare_errors.KindUnauthenticated:
		return http.StatusUnauthorized
	case medishare_errors.KindAuthorization:
		return http.StatusForbidden
	case medishare_errors.KindNotFound:
		return http.StatusNotFound
	case medishare_errors.KindInvalidState:
		return http.StatusConflict
	case medishare_errors.KindConflict:
		return http.StatusConflict
	case medishare_errors.KindRateLimited:
		return http.StatusTooManyRequests
	case medishare_errors.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
