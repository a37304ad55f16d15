// Package version decodes and compares rule-set version tokens.
//
// A token is an opaque string of digits: an 8-digit release date followed by
// a revision of any length, e.g. "2023010100" is release 20230101 revision 0.
// Tokens are produced by the update server and stored verbatim; they are
// only decoded to decide whether a remote rule set is newer.
package version

import (
	"fmt"
	"strconv"

	"github.com/solatis/antiseptic/internal/types"
)

// releaseDateLen is the number of leading digits holding the release date.
const releaseDateLen = 8

// Version is a decoded token.
type Version struct {
	ReleaseDate uint64
	Revision    uint64
}

// Zero stands for "no local rule set". Every valid remote version other than
// the zero token is newer.
var Zero = Version{}

// Decode splits a token positionally into release date and revision.
// Tokens shorter than 8 digits are all release date with revision 0.
func Decode(token string) (Version, error) {
	if token == "" {
		return Version{}, fmt.Errorf("%w: empty token", types.ErrInvalidVersionFormat)
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return Version{}, fmt.Errorf("%w: %q", types.ErrInvalidVersionFormat, token)
		}
	}

	datePart, revPart := token, ""
	if len(token) > releaseDateLen {
		datePart, revPart = token[:releaseDateLen], token[releaseDateLen:]
	}

	date, err := strconv.ParseUint(datePart, 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidVersionFormat, token, err)
	}
	var rev uint64
	if revPart != "" {
		rev, err = strconv.ParseUint(revPart, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidVersionFormat, token, err)
		}
	}
	return Version{ReleaseDate: date, Revision: rev}, nil
}

// NewerThan reports whether v is strictly newer than other.
// Release date dominates; revision breaks ties.
func (v Version) NewerThan(other Version) bool {
	if v.ReleaseDate != other.ReleaseDate {
		return v.ReleaseDate > other.ReleaseDate
	}
	return v.Revision > other.Revision
}

func (v Version) String() string {
	return fmt.Sprintf("%08d.%d", v.ReleaseDate, v.Revision)
}

// Status is the freshness of a local rule set relative to a remote one.
type Status int

const (
	UpToDate Status = iota
	Stale
)

func (s Status) String() string {
	if s == Stale {
		return "stale"
	}
	return "up-to-date"
}

// Compare reports Stale when remote is newer than local.
func Compare(local, remote Version) Status {
	if remote.NewerThan(local) {
		return Stale
	}
	return UpToDate
}

// CompareTokens decodes both tokens and compares them. An empty local token
// means no local rule set. Any decode failure is returned: callers must not
// read it as "up to date".
func CompareTokens(local, remote string) (Status, error) {
	r, err := Decode(remote)
	if err != nil {
		return Stale, fmt.Errorf("remote version: %w", err)
	}
	l := Zero
	if local != "" {
		l, err = Decode(local)
		if err != nil {
			return Stale, fmt.Errorf("local version: %w", err)
		}
	}
	return Compare(l, r), nil
}
