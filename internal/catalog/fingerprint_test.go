package catalog

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	content := []byte("%PDF-1.7 past paper")

	a, n, err := Fingerprint(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Len(t, a, 64)

	b, _, err := Fingerprint(bytes.NewReader(bytes.Clone(content)))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := bytes.Clone(content)
	changed[len(changed)-1] ^= 1
	c, _, err := Fingerprint(bytes.NewReader(changed))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprint_KnownVector(t *testing.T) {
	sum, _, err := Fingerprint(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)
}

func TestFingerprint_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Fingerprint(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}

func TestLooksLikePDF(t *testing.T) {
	assert.True(t, LooksLikePDF([]byte("%PDF-1.4\n")))
	assert.False(t, LooksLikePDF([]byte("PK\x03\x04")))
	assert.False(t, LooksLikePDF(nil))
}
