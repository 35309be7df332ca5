package ark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyneme/termeric/idgen"
)

func TestParseNaan(t *testing.T) {
	n, err := ParseNaan("57802")
	require.NoError(t, err)
	assert.Equal(t, Naan(57802), n)
	assert.Equal(t, "ark:57802/fk1abc", n.ARK("fk1abc"))

	for _, bad := range []string{"", "123", "1234567", "09999", "abcde", "100000"} {
		_, err := ParseNaan(bad)
		assert.ErrorIs(t, err, ErrBadNaan, "input %q", bad)
	}
}

func TestParseShoulder(t *testing.T) {
	for _, good := range []string{"fk1", "p0", "dw0", "mkg0"} {
		s, err := ParseShoulder(good)
		require.NoError(t, err, "input %q", good)
		assert.Equal(t, Shoulder(good), s)
	}
	for _, bad := range []string{"", "fk", "1fk", "fk12", "FK1", "fo1", "fl1"} {
		_, err := ParseShoulder(bad)
		assert.ErrorIs(t, err, ErrBadShoulder, "input %q", bad)
	}
}

func TestSplitBasename(t *testing.T) {
	shoulder, blade, err := SplitBasename("fk1x7mt0q")
	require.NoError(t, err)
	assert.Equal(t, Shoulder("fk1"), shoulder)
	assert.Equal(t, "x7mt0q", blade)

	// The first digit terminates the shoulder.
	shoulder, blade, err = SplitBasename("p0abc123")
	require.NoError(t, err)
	assert.Equal(t, Shoulder("p0"), shoulder)
	assert.Equal(t, "abc123", blade)

	_, _, err = SplitBasename("12345")
	assert.ErrorIs(t, err, ErrBadShoulder)
}

func TestValidBasename(t *testing.T) {
	blade, err := idgen.Generate(7, 0, true)
	require.NoError(t, err)
	assert.True(t, ValidBasename("fk1"+blade))

	assert.False(t, ValidBasename("fk1"), "shoulder alone is not a minted name")
	assert.False(t, ValidBasename("12345"))
}

func TestAgentARK(t *testing.T) {
	assert.Equal(t, "ark:57802/9999/12/system/agents/alice", AgentARK(Naan(57802), "alice"))
}
