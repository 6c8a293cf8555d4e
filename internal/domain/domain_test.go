package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

func TestRole_Satisfies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		have domain.Role
		need domain.Role
		want bool
	}{
		{domain.RoleAdmin, domain.RoleAdmin, true},
		{domain.RoleAdmin, domain.RoleMember, true},
		{domain.RoleAdmin, domain.RoleViewer, true},
		{domain.RoleMember, domain.RoleAdmin, false},
		{domain.RoleMember, domain.RoleMember, true},
		{domain.RoleMember, domain.RoleViewer, true},
		{domain.RoleViewer, domain.RoleAdmin, false},
		{domain.RoleViewer, domain.RoleMember, false},
		{domain.RoleViewer, domain.RoleViewer, true},
		{domain.Role("owner"), domain.RoleViewer, false},
		{domain.Role(""), domain.RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.have)+">="+string(tt.need), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.have.Satisfies(tt.need))
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := domain.ParseRole("member")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, r)

	_, err = domain.ParseRole("superuser")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"none", "low", "medium", "high", "urgent"} {
		p, err := domain.ParsePriority(s)
		require.NoError(t, err, s)
		assert.Equal(t, domain.Priority(s), p)
	}

	_, err := domain.ParsePriority("critical")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestBoard_RoleOf(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	viewer := uuid.New()
	stranger := uuid.New()

	b := &domain.Board{
		ID:      uuid.New(),
		OwnerID: owner,
		Members: []domain.Member{
			{UserID: viewer, Role: domain.RoleViewer},
			// An owner listed with a weaker role is still admin.
			{UserID: owner, Role: domain.RoleViewer},
		},
	}

	r, ok := b.RoleOf(owner)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, r)

	r, ok = b.RoleOf(viewer)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleViewer, r)

	_, ok = b.RoleOf(stranger)
	assert.False(t, ok)
}

func TestWorkspace_RoleOf(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	member := uuid.New()
	w := &domain.Workspace{OwnerID: owner, Members: []domain.Member{{UserID: member, Role: domain.RoleMember}}}

	r, ok := w.RoleOf(owner)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, r)

	r, ok = w.RoleOf(member)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleMember, r)

	_, ok = w.RoleOf(uuid.New())
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.IsTerminal(fmt.Errorf("wrap: %w", domain.ErrNotFound)))
	assert.True(t, domain.IsTerminal(domain.ErrForbidden))
	assert.True(t, domain.IsTerminal(domain.ErrValidation))
	assert.True(t, domain.IsTerminal(domain.ErrInvalidOperation))
	assert.False(t, domain.IsTerminal(domain.ErrStorage))
	assert.False(t, domain.IsTerminal(errors.New("boom")))
}
