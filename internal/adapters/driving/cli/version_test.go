package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "true", versionCmd.Annotations[skipInit])
}

func TestVersionCmd_Executes(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"release build", "1.4.2", "clause version 1.4.2\n"},
		{"dev build", "dev", "clause version dev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := version
			SetVersion(tt.version)
			defer func() { version = original }()

			out, err := execute("version")

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestVersionCmd_RunsWithoutServices(t *testing.T) {
	SetServices(nil)

	_, err := execute("version")

	assert.NoError(t, err)
}
