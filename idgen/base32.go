// Package idgen generates and decodes the opaque identifier strings minted
// under an ARK shoulder. It uses the Douglas Crockford base32 alphabet
// (digits plus lowercase letters, excluding i, l, o, and u) so identifiers
// survive transcription: visually ambiguous characters are normalized back
// to digits on decode, and an optional checksum character catches
// single-character typos.
package idgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Alphabet is the Crockford base32 symbol set, in value order.
const Alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const base = uint64(len(Alphabet))

// maxDigits is the longest base32 string Encode can emit for a uint64
// (2^64 < 32^13).
const maxDigits = 13

var (
	// ErrChecksum indicates the trailing checksum character does not match
	// the rest of the string.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrAlphabet indicates a character outside the base32 alphabet that
	// typo correction cannot repair.
	ErrAlphabet = errors.New("character outside base32 alphabet")
)

// values maps a normalized byte to its alphabet value, or -1.
var values [256]int

func init() {
	for i := range values {
		values[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		values[Alphabet[i]] = i
	}
}

// Encode maps a non-negative integer to a base32 string, left-zero-padded to
// minLength characters (separators excluded). If checksum is set, one extra
// checksum character is appended. If splitEvery is positive, a hyphen is
// inserted every splitEvery characters for readability.
func Encode(n uint64, splitEvery, minLength int, checksum bool) string {
	var buf [maxDigits + 1]byte
	i := len(buf)
	for {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
		if n == 0 {
			break
		}
	}
	s := string(buf[i:])
	if pad := minLength - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	if checksum {
		s += string(checksumChar(s))
	}
	return split(s, splitEvery)
}

// Decode reverses Encode. The input is normalized first: hyphens removed,
// letters lowercased, and the common transcription confusions I/i/L/l => 1
// and O/o => 0 corrected. With checksum set, the final character is
// validated against the rest and ErrChecksum is returned on mismatch.
func Decode(encoded string, checksum bool) (uint64, error) {
	s, err := Normalize(encoded)
	if err != nil {
		return 0, err
	}
	if checksum {
		if len(s) < 2 {
			return 0, fmt.Errorf("decode %q: too short for checksum", encoded)
		}
		payload, check := s[:len(s)-1], s[len(s)-1]
		if checksumChar(payload) != check {
			return 0, fmt.Errorf("decode %q: %w", encoded, ErrChecksum)
		}
		s = payload
	}
	if len(s) == 0 {
		return 0, fmt.Errorf("decode %q: empty", encoded)
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		v := uint64(values[s[i]])
		if n > (math.MaxUint64-v)/base {
			return 0, fmt.Errorf("decode %q: value overflows uint64", encoded)
		}
		n = n*base + v
	}
	return n, nil
}

// Generate produces a random base32 string of the given total length, the
// checksum character included when enabled. Each character is drawn
// independently from the alphabet; this is not an encoding of a random
// integer, so any length is valid.
func Generate(length, splitEvery int, checksum bool) (string, error) {
	payload := length
	if checksum {
		payload--
	}
	if payload < 1 {
		return "", fmt.Errorf("generate: length %d too short (checksum=%v)", length, checksum)
	}
	raw := make([]byte, payload)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	for i, b := range raw {
		raw[i] = Alphabet[int(b)%len(Alphabet)]
	}
	s := string(raw)
	if checksum {
		s += string(checksumChar(s))
	}
	return split(s, splitEvery), nil
}

// Validate normalizes s and checks its trailing checksum character.
func Validate(encoded string) error {
	s, err := Normalize(encoded)
	if err != nil {
		return err
	}
	if len(s) < 2 {
		return fmt.Errorf("validate %q: too short for checksum", encoded)
	}
	if checksumChar(s[:len(s)-1]) != s[len(s)-1] {
		return fmt.Errorf("validate %q: %w", encoded, ErrChecksum)
	}
	return nil
}

// Normalize lowercases s, strips hyphen separators, and corrects the
// transcription confusions the alphabet was designed around. It returns
// ErrAlphabet if any remaining character is not a base32 symbol.
func Normalize(s string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case '-':
			continue
		case 'i', 'l':
			r = '1'
		case 'o':
			r = '0'
		}
		if r > 255 || values[byte(r)] < 0 {
			return "", fmt.Errorf("normalize %q: %w (%q)", s, ErrAlphabet, r)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// checksumChar computes a weighted positional checksum over an already
// normalized string: sum of value(c) * (position+1), modulo the alphabet
// size. A single-character substitution or a swap of adjacent distinct
// characters changes the sum.
func checksumChar(s string) byte {
	var sum uint64
	for i := 0; i < len(s); i++ {
		sum += uint64(values[s[i]]) * uint64(i+1)
	}
	return Alphabet[sum%base]
}

// split inserts a hyphen every n characters. n <= 0 disables splitting.
func split(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i += n {
		if i > 0 {
			sb.WriteByte('-')
		}
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		sb.WriteString(s[i:end])
	}
	return sb.String()
}
