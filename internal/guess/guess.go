// Package guess is the rule-free cleaning strategy: it extracts a movie
// title and release year from a release name and formats them as
// "Title (Year)".
package guess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solatis/antiseptic/internal/types"
)

// Guess is what could be extracted from a name. Year is empty when absent.
type Guess struct {
	Title string
	Year  string
}

// String formats the guess as a directory name.
func (g Guess) String() string {
	if g.Year == "" {
		return g.Title
	}
	return g.Title + " (" + g.Year + ")"
}

var sepReplacer = strings.NewReplacer(".", " ", "_", " ")

var (
	// reBrackets matches [group] and {tag} blocks anywhere in the name.
	reBrackets = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)

	// reYear matches a plausible release year; yearBounded checks delimiters.
	reYear = regexp.MustCompile(`(?:19|20)[0-9]{2}`)

	// reReleaseTags matches from the first release tag to the end of the name.
	reReleaseTags = regexp.MustCompile(
		`(?i)(?:^|[\s._\-])(?:` +
			`480p|576p|720p|1080[pi]|2160p|4K|UHD|` +
			`WEB-?DL|WEB-?Rip|BluRay|BRRip|BDRip|DVDRip|DVDScr|DVD|HDTV|HDRip|` +
			`x264|x265|XviD|DivX|HEVC|AVC|H\.?264|H\.?265|` +
			`AAC|AC3|DTS|DTS-HD|TrueHD|FLAC|EAC3|DD\+?5\.1|Atmos|` +
			`10bit|HDR|HDR10|DV|DoVi|` +
			`Dual[\s.]?Audio|MULTI|REMUX|PROPER|REPACK|LIMITED|UNRATED|EXTENDED|INTERNAL|` +
			`NF|AMZN|DSNP|HMAX|ATVP` +
			`)(?:[\s._\-]|$)`)

	reSpaces = regexp.MustCompile(`\s+`)
)

// Parse extracts a title and year from name.
//
// The year is the last plausible year with a non-empty title before it, so
// "2001 A Space Odyssey 1968" keeps "2001" in the title. Without a year the
// title runs up to the first release tag.
func Parse(name string) Guess {
	s := strings.TrimSpace(reBrackets.ReplaceAllString(name, " "))

	matches := reYear.FindAllStringIndex(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][0], matches[i][1]
		if !yearBounded(s, start, end) {
			continue
		}
		if title := cleanTitle(s[:start]); title != "" {
			return Guess{Title: title, Year: s[start:end]}
		}
	}

	return Guess{Title: cleanTitle(s)}
}

const yearDelims = " ._-()[]"

// yearBounded reports whether s[start:end] stands alone between delimiters.
func yearBounded(s string, start, end int) bool {
	if start > 0 && !strings.ContainsRune(yearDelims, rune(s[start-1])) {
		return false
	}
	if end < len(s) && !strings.ContainsRune(yearDelims, rune(s[end])) {
		return false
	}
	return true
}

// cleanTitle converts separators to spaces, cuts release tags and trims
// leftover punctuation.
func cleanTitle(s string) string {
	if loc := reReleaseTags.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = sepReplacer.Replace(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.Trim(s, " -([")
}

// Cleaner implements the rename workflow's cleaner with Parse.
type Cleaner struct{}

// New returns a guess cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Name identifies the strategy in logs and configuration.
func (c *Cleaner) Name() string {
	return "guess"
}

// Clean returns "Title (Year)", or "Title" when no year is found.
// Fails with types.ErrNoTitle when no title remains.
func (c *Cleaner) Clean(name string) (types.CleanResult, error) {
	g := Parse(name)
	if g.Title == "" {
		return types.CleanResult{Text: name}, fmt.Errorf("%w: %s", types.ErrNoTitle, name)
	}
	return types.CleanResult{Text: g.String()}, nil
}
