package segments

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_RequiresValidOrg(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing flag", []string{"sync"}, `required flag(s) "org" not set`},
		{"bad uuid", []string{"sync", "--org", "acme"}, "invalid --org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
