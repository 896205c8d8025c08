package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestExpandString(t *testing.T) {
	t.Setenv("SECURITAS_TEST_TOKEN", "123:abc")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"literal", "plain-password", "plain-password", false},
		{"variable", "${SECURITAS_TEST_TOKEN}", "123:abc", false},
		{"embedded", "bot${SECURITAS_TEST_TOKEN}/", "bot123:abc/", false},
		{"fallback unused", "${SECURITAS_TEST_TOKEN:-other}", "123:abc", false},
		{"fallback used", "${SECURITAS_TEST_UNSET:-other}", "other", false},
		{"empty fallback", "${SECURITAS_TEST_UNSET:-}", "", false},
		{"missing", "${SECURITAS_TEST_UNSET}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SECURITAS_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("trims trailing newlines", func(t *testing.T) {
		t.Parallel()
		got, err := ReadFile(writeSecret(t, "s3cret\r\n", 0o600))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	})

	t.Run("keeps surrounding spaces", func(t *testing.T) {
		t.Parallel()
		got, err := ReadFile(writeSecret(t, " s3cret \n", 0o400))
		require.NoError(t, err)
		assert.Equal(t, " s3cret ", got)
	})

	t.Run("permissive mode still reads", func(t *testing.T) {
		t.Parallel()
		got, err := ReadFile(writeSecret(t, "s3cret", 0o644))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(writeSecret(t, "\n", 0o600))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
		require.ErrorContains(t, err, "not found")
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(t.TempDir())
		require.ErrorContains(t, err, "not a regular file")
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		big := make([]byte, maxFileSize+1)
		for i := range big {
			big[i] = 'x'
		}
		_, err := ReadFile(writeSecret(t, string(big), 0o600))
		require.ErrorContains(t, err, "too large")
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile("")
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("SECURITAS_TEST_DB_PASSWORD", "from-env")

	fromFile := writeSecret(t, "from-file\n", 0o600)

	got, err := Resolve(fromFile, "${SECURITAS_TEST_DB_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file takes precedence")

	got, err = Resolve("", "${SECURITAS_TEST_DB_PASSWORD}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing"), "literal")
	require.Error(t, err)
}
