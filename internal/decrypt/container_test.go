package decrypt

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestContainer(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, plaintext := range entries {
		payload := encryptForTest(t, name, plaintext)
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeContainer_AllEntriesPresent(t *testing.T) {
	blob := buildTestContainer(t, map[string][]byte{
		"gameRecord":   []byte("record-bytes"),
		"gameProgress": []byte("progress-bytes"),
		"user":         []byte("user-bytes"),
		"settings":     []byte("settings-bytes"),
		"gameKey":      []byte("gamekey-bytes"),
	})

	c, err := DecodeContainer(blob)
	require.NoError(t, err)
	assert.Empty(t, c.Errors)
	assert.Equal(t, []byte("record-bytes"), c.Entries["gameRecord"])
	assert.Equal(t, []byte("user-bytes"), c.Entries["user"])
}

func TestDecodeContainer_MissingEntryIsRecordedNotFatal(t *testing.T) {
	blob := buildTestContainer(t, map[string][]byte{
		"gameRecord": []byte("record-bytes"),
		"user":       []byte("user-bytes"),
	})

	c, err := DecodeContainer(blob)
	require.NoError(t, err)
	assert.Contains(t, c.Entries, "gameRecord")
	assert.Contains(t, c.Entries, "user")
	assert.Contains(t, c.Errors, "gameProgress")
	assert.Contains(t, c.Errors, "settings")
	assert.Contains(t, c.Errors, "gameKey")
}

func TestDecodeContainer_OneCorruptEntryDoesNotAbortOthers(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	goodPayload := encryptForTest(t, "user", []byte("user-bytes"))
	f, err := w.Create("user")
	require.NoError(t, err)
	_, err = f.Write(goodPayload)
	require.NoError(t, err)

	badPayload := encryptForTest(t, "gameRecord", []byte("record-bytes"))
	badPayload[0] = 0xFF // corrupt the framing tag
	f, err = w.Create("gameRecord")
	require.NoError(t, err)
	_, err = f.Write(badPayload)
	require.NoError(t, err)

	require.NoError(t, w.Close())

	c, err := DecodeContainer(buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, c.Entries, "user")
	assert.NotContains(t, c.Entries, "gameRecord")
	require.Contains(t, c.Errors, "gameRecord")
	var entryErr *EntryError
	require.ErrorAs(t, c.Errors["gameRecord"], &entryErr)
	assert.Equal(t, ErrBadTag, entryErr.Kind)
}

func TestDecodeContainer_MalformedZipIsFatal(t *testing.T) {
	_, err := DecodeContainer([]byte("not a zip file at all"))
	assert.Error(t, err)
}
