package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verrs *apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	return verrs.Errors
}

func TestNewTicket(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		params, err := NewTicket(" VPN down ", "Cannot connect", "high", "network,vpn")
		require.NoError(t, err)
		assert.Equal(t, "VPN down", params.Title)
		assert.Equal(t, domain.PriorityHigh, params.Priority)
		assert.NoError(t, params.Validate())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewTicket("", strings.Repeat("x", MaxDescriptionLength+1), "urgent", "")
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)

		fields := fieldErrors(t, err)
		assert.Equal(t, []string{"This field is required"}, fields["title"])
		assert.Contains(t, fields["description"][0], "at most")
		assert.Contains(t, fields["priority"][0], "critical, high, medium, low")
	})
}

func TestTicketFilter(t *testing.T) {
	filter, err := TicketFilter(" printer ", "open", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketFilter{Query: "printer", Status: domain.StatusOpen}, filter)

	_, err = TicketFilter("", "closed", "")
	assert.Contains(t, fieldErrors(t, err), "status")
}

func TestUserFilter(t *testing.T) {
	filter, err := UserFilter("bob", "manager")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, filter.Role)

	_, err = UserFilter("", "root")
	assert.Contains(t, fieldErrors(t, err), "role")
}

func TestProfile(t *testing.T) {
	good := "alice@example.com"
	bad := "alice@"
	long := strings.Repeat("é", MaxFullNameLength+1)

	assert.NoError(t, Profile(domain.ProfileUpdate{}))
	assert.NoError(t, Profile(domain.ProfileUpdate{Email: &good}))

	fields := fieldErrors(t, Profile(domain.ProfileUpdate{Email: &bad, FullName: &long}))
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "full_name")
}

func TestLogin(t *testing.T) {
	assert.NoError(t, Login("alice", "pw"))

	fields := fieldErrors(t, Login(" ", ""))
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}
