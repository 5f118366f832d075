package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippclub/gem-poller/internal/protocol"
)

func Test_ParseRequestKind(t *testing.T) {
	names := []string{
		"repository-configuration",
		"package-configuration",
		"validate-repository-configuration",
		"validate-package-configuration",
		"check-repository-connection",
		"check-package-connection",
		"latest-revision",
		"latest-revision-since",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			kind, err := protocol.ParseRequestKind(name)
			require.NoError(t, err)
			assert.Equal(t, name, kind.String())
		})
	}
}

func Test_ParseRequestKind_Unknown(t *testing.T) {
	_, err := protocol.ParseRequestKind("scm-configuration")
	assert.ErrorIs(t, err, protocol.ErrUnknownRequest)
	assert.Equal(t, "RequestKind(99)", protocol.RequestKind(99).String())
}

func Test_PluginIdentifier(t *testing.T) {
	id := protocol.PluginIdentifier()
	assert.Equal(t, "package-repository", id.Extension)
	assert.Equal(t, []string{"1.0"}, id.Versions)
}
