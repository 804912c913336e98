package permission

import (
	"testing"

	"github.com/otahub/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEnforcer_MatchesOrderedPolicy(t *testing.T) {
	e, err := NewEnforcer(zaptest.NewLogger(t))
	require.NoError(t, err)

	all := append([]identity.Right{identity.RightNone}, identity.AllRights...)
	for _, held := range all {
		for _, required := range all {
			assert.Equal(t,
				identity.OrderedPolicy{}.Satisfies(held, required),
				e.Satisfies(held, required),
				"held=%s required=%s", held, required,
			)
		}
	}
}

func TestEnforcer_Implied(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)

	assert.Equal(t, []identity.Right{identity.RightRead, identity.RightUpload}, e.Implied(identity.RightUpload))
	assert.Equal(t, identity.AllRights, e.Implied(identity.RightAdmin))
	assert.Empty(t, e.Implied(identity.RightNone))
}
