package drivers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSDriver_DirectoryHashing(t *testing.T) {
	tempDir := t.TempDir()
	driver, err := NewLocalFSDriver(tempDir, "/api/v1/uploads/")
	require.NoError(t, err)

	ctx := context.Background()
	key := "attachment/abcdef123456.pdf"
	content := []byte("test content")

	require.NoError(t, driver.Save(ctx, key, bytes.NewReader(content), "application/pdf"))

	// attachment/abcdef123456.pdf is stored at attachment/ab/cd/abcdef123456.pdf
	fullPath := filepath.Join(tempDir, "attachment", "ab", "cd", "abcdef123456.pdf")
	_, err = os.Stat(fullPath)
	require.NoError(t, err)

	reader, contentType, err := driver.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, content, got)
	assert.Equal(t, "application/pdf", contentType)

	url, err := driver.GenerateURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/uploads/"+key, url)

	require.NoError(t, driver.Delete(ctx, key))
	_, err = os.Stat(fullPath)
	assert.True(t, os.IsNotExist(err), "file still exists after deletion")

	_, _, err = driver.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, driver.Delete(ctx, key), "deleting a missing key is not an error")
}
