package host_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lualab/luascope/pkg/host"
)

func TestLoadExtensionMissingLibrary(t *testing.T) {
	h := host.New()
	defer h.Close()

	err := h.LoadExtension(filepath.Join(t.TempDir(), "does-not-exist.so"))
	require.Error(t, err)

	var extErr *host.ExtensionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "open", extErr.Op)

	// Host state is untouched by the failed load.
	out, err := h.Execute("1 + 2")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "3", *out.ReturnValue)
}
