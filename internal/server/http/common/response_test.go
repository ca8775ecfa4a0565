package common

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/user"
	"github.com/sitewave/sitewave/internal/service/website"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		// A foreign website must be indistinguishable from a missing one.
		{"not owner", website.ErrNotOwner, http.StatusNotFound, "not_found"},
		{"website not found", website.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unverified email", user.ErrNotVerified, http.StatusForbidden, "forbidden"},
		{"invalid code", user.ErrInvalidCode, http.StatusBadRequest, "bad_request"},
		{"expired code", user.ErrCodeExpired, http.StatusBadRequest, "bad_request"},
		{"wrapped sentinel", errors.Wrap(website.ErrNotOwner, "delete"), http.StatusNotFound, "not_found"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := statusOf(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
