package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

func TestReadPassword(t *testing.T) {
	cfg := &config.GlobalConfig{NonInteractive: true}

	t.Run("flag wins over stdin", func(t *testing.T) {
		pw, err := readPassword(cfg, "flagpw", true, strings.NewReader("stdinpw\n"))
		require.NoError(t, err)
		assert.Equal(t, "flagpw", pw)
	})

	t.Run("first stdin line", func(t *testing.T) {
		pw, err := readPassword(cfg, "", true, strings.NewReader("s3cret\r\nignored\n"))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", pw)
	})

	t.Run("stdin without newline", func(t *testing.T) {
		pw, err := readPassword(cfg, "", true, strings.NewReader("s3cret"))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", pw)
	})

	t.Run("empty stdin", func(t *testing.T) {
		_, err := readPassword(cfg, "", true, strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("non-interactive without a source", func(t *testing.T) {
		_, err := readPassword(cfg, "", false, strings.NewReader("ignored"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-interactive")
	})
}
