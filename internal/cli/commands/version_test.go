package commands

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	info := BuildInfo{Version: "0.1.0", GitCommit: "abc1234", BuildDate: "2026-01-02"}

	tests := []struct {
		name    string
		args    []string
		wantOut []string
		exact   string
	}{
		{
			name:    "full",
			wantOut: []string{"leapexplore v0.1.0", "XML documents", "commit: abc1234", "built:  2026-01-02", runtime.Version()},
		},
		{
			name:  "short",
			args:  []string{"--short"},
			exact: "0.1.0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
			if tt.exact != "" {
				assert.Equal(t, tt.exact, buf.String())
			}
		})
	}
}
