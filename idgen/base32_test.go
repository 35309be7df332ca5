package idgen

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		n := rng.Uint64() >> uint(rng.Intn(40)) // bias toward small values too
		for _, splitEvery := range []int{0, 4} {
			s := Encode(n, splitEvery, 10, true)
			got, err := Decode(s, true)
			require.NoError(t, err, "decode %q", s)
			assert.Equal(t, n, got, "round trip of %d via %q", n, s)
		}
	}
}

func TestEncodePadding(t *testing.T) {
	s := Encode(0, 0, 10, false)
	assert.Equal(t, "0000000000", s)

	s = Encode(0, 5, 10, true)
	// 10 zero digits plus checksum char, hyphen every 5.
	assert.Equal(t, 12+1, len(s))
	assert.Equal(t, 2, strings.Count(s, "-"))
}

func TestEncodeAlphabetOnly(t *testing.T) {
	for n := uint64(0); n < 5000; n++ {
		s := Encode(n, 0, 6, true)
		for i := 0; i < len(s); i++ {
			assert.Contains(t, Alphabet, string(s[i]))
		}
	}
}

func TestGenerateDecodes(t *testing.T) {
	for i := 0; i < 500; i++ {
		s, err := Generate(10, 5, true)
		require.NoError(t, err)
		require.NoError(t, Validate(s))
		_, err = Decode(s, true)
		require.NoError(t, err)
	}
}

func TestGenerateLength(t *testing.T) {
	s, err := Generate(8, 0, true)
	require.NoError(t, err)
	assert.Len(t, s, 8) // checksum included in total length

	_, err = Generate(1, 0, true)
	assert.Error(t, err, "length must accommodate the checksum character")

	s, err = Generate(1, 0, false)
	require.NoError(t, err)
	assert.Len(t, s, 1)
}

func TestSingleCharacterMutationDetected(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	detected, total := 0, 0
	for i := 0; i < 400; i++ {
		s, err := Generate(10, 0, true)
		require.NoError(t, err)
		pos := rng.Intn(len(s))
		for {
			c := Alphabet[rng.Intn(len(Alphabet))]
			if c != s[pos] {
				mutated := s[:pos] + string(c) + s[pos+1:]
				total++
				if _, err := Decode(mutated, true); err != nil {
					detected++
				}
				break
			}
		}
	}
	// The weighted positional checksum misses a substitution at position p
	// only when the value delta times (p+1) is 0 mod 32.
	assert.Greater(t, detected, total*9/10, "detected %d of %d mutations", detected, total)
}

func TestTypoCorrection(t *testing.T) {
	n, err := Decode("10", false)
	require.NoError(t, err)

	for _, alias := range []string{"I0", "i0", "L0", "l0", "1O", "1o"} {
		got, err := Decode(alias, false)
		require.NoError(t, err, "alias %q", alias)
		assert.Equal(t, n, got, "alias %q", alias)
	}
}

func TestDecodeRejectsForeignCharacters(t *testing.T) {
	for _, bad := range []string{"abcu", "ab!c", "abc def", "abé"} {
		_, err := Decode(bad, false)
		assert.ErrorIs(t, err, ErrAlphabet, "input %q", bad)
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	s := Encode(12345, 0, 6, true)
	// Corrupt the checksum character itself.
	last := s[len(s)-1]
	var other byte
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] != last {
			other = Alphabet[i]
			break
		}
	}
	_, err := Decode(s[:len(s)-1]+string(other), true)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecodeOverflowGuard(t *testing.T) {
	// math.MaxUint64 is the largest 13-digit value: f followed by 12 z's.
	got, err := Decode("fzzzzzzzzzzzz", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	// One past it (16 * 32^12 = 2^64) must be rejected, as must anything wider.
	_, err = Decode("g000000000000", false)
	assert.Error(t, err)
	_, err = Decode(strings.Repeat("z", 13), false)
	assert.Error(t, err)
}

func TestEncodeDecodeLargeValues(t *testing.T) {
	for _, n := range []uint64{1 << 60, 1 << 62, 1<<63 + 7, math.MaxUint64} {
		s := Encode(n, 0, 10, true)
		got, err := Decode(s, true)
		require.NoError(t, err, "decode %q", s)
		assert.Equal(t, n, got, "round trip of %d via %q", n, s)
	}
}
