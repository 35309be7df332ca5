// Package ark implements the ARK identifier core: naming-authority numbers
// (NAANs), shoulders, basename parsing, the shoulder registry, and the
// collision-free identifier allocator.
//
// An ARK is "ark:<naan>/<basename>" where the basename begins with a
// registered shoulder (restricted-alphabet letters terminated by one digit)
// followed by an opaque checksummed blade.
package ark

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/polyneme/termeric/idgen"
)

var (
	// ErrBadNaan indicates a NAAN that is not a 5-digit number in
	// [10000, 99999].
	ErrBadNaan = errors.New("invalid naan")

	// ErrBadShoulder indicates a shoulder that is not one-or-more base32
	// letters followed by a single digit.
	ErrBadShoulder = errors.New("invalid shoulder")

	// ErrUnregisteredShoulder indicates a shoulder that is well-formed
	// but not registered for its NAAN. The identifier space under an
	// unregistered shoulder cannot be minted into.
	ErrUnregisteredShoulder = errors.New("shoulder not registered for naan")
)

// Naan is a Name Assigning Authority Number: exactly five decimal digits.
type Naan int

// ParseNaan parses and validates a NAAN string.
func ParseNaan(s string) (Naan, error) {
	if len(s) != 5 {
		return 0, fmt.Errorf("%w: %q is not 5 digits", ErrBadNaan, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 10000 || n > 99999 {
		return 0, fmt.Errorf("%w: %q", ErrBadNaan, s)
	}
	return Naan(n), nil
}

func (n Naan) String() string { return strconv.Itoa(int(n)) }

// ARK returns the canonical identifier string for a basename under n.
func (n Naan) ARK(basename string) string {
	return fmt.Sprintf("ark:%d/%s", int(n), basename)
}

// shoulderRe matches one-or-more base32 letters followed by one digit. The
// terminating digit is the "first-digit convention": it makes the split
// between shoulder and blade unambiguous without a registry lookup.
var shoulderRe = regexp.MustCompile(`^[abcdefghjkmnpqrstvwxyz]+[0-9]$`)

// shoulderPrefixRe captures a leading shoulder off the front of a basename.
var shoulderPrefixRe = regexp.MustCompile(`^([abcdefghjkmnpqrstvwxyz]+[0-9])`)

// Shoulder is a registered sub-prefix partitioning a NAAN's identifier
// space, e.g. "fk1".
type Shoulder string

// ParseShoulder parses and validates a shoulder string.
func ParseShoulder(s string) (Shoulder, error) {
	if !shoulderRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrBadShoulder, s)
	}
	return Shoulder(s), nil
}

func (s Shoulder) String() string { return string(s) }

// SplitBasename splits a minted basename into its shoulder and blade. The
// shoulder ends at the first digit; everything after is the blade.
func SplitBasename(basename string) (Shoulder, string, error) {
	m := shoulderPrefixRe.FindString(basename)
	if m == "" {
		return "", "", fmt.Errorf("%w: basename %q has no shoulder prefix", ErrBadShoulder, basename)
	}
	return Shoulder(m), basename[len(m):], nil
}

// ValidBasename reports whether basename is a well-formed minted name:
// a shoulder prefix followed by a blade whose checksum verifies.
func ValidBasename(basename string) bool {
	_, blade, err := SplitBasename(basename)
	if err != nil || blade == "" {
		return false
	}
	return idgen.Validate(blade) == nil
}

// AgentBasename is the reserved dated path under which agent resources
// live: the sentinel date 9999/12 keeps agents permanently mutable under
// the namespace date gate.
const AgentBasename = "9999/12/system/agents"

// AgentARK returns the identifier for the named agent under n.
func AgentARK(n Naan, username string) string {
	return n.ARK(AgentBasename + "/" + username)
}
