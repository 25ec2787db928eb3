package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
	"github.com/rcflow/rcflow/infrastructure/logging"
)

// abortWithError writes the JSON error response for err.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error().
			Add(logging.Str("path", c.FullPath())).
			Add(logging.ErrorField(err)).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, changerequest.ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, changerequest.ErrCreatorSelfApprove),
		errors.Is(err, changerequest.ErrCreatorSelfReview),
		errors.Is(err, changerequest.ErrNotAReviewer),
		errors.Is(err, changerequest.ErrNotCreator):
		return http.StatusForbidden

	case errors.Is(err, changerequest.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, changerequest.ErrVersionConflict):
		return http.StatusConflict

	case errors.Is(err, changerequest.ErrInvalidRequest),
		errors.Is(err, changerequest.ErrInvalidTransition),
		errors.Is(err, changerequest.ErrNotPendingReview),
		errors.Is(err, changerequest.ErrDuplicateReviewer),
		errors.Is(err, changerequest.ErrCreatorAsReviewer),
		errors.Is(err, changerequest.ErrNoApprovedReviewer),
		errors.Is(err, remoteconfig.ErrInvalidEnv),
		errors.Is(err, audit.ErrInvalidEntry):
		return http.StatusBadRequest

	case errors.Is(err, remoteconfig.ErrPublishFailed),
		errors.Is(err, remoteconfig.ErrSourceUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
