// Package naming parses project folder names into their numbering parts.
//
// Project folders on the shared drive follow a handful of numbering
// conventions. Each convention is a regular expression over the folder name;
// they are tried in order and the first match wins:
//
//	2024638.001 Palm Beach Project   year 2024, number 638, sub-job .001
//	2024-0638 Palm Beach Project     year 2024, dashed sequence
//	24-638 Palm Beach Project        two-digit year
//
// The number may be followed by a name separated by spaces, underscores, or
// " - ". A folder consisting of only a number parses with an empty name.
package naming

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoMatch is returned when a folder name follows no known convention
var ErrNoMatch = errors.New("folder name does not match a project numbering convention")

// Year bounds for four-digit years; anything outside is treated as a
// coincidental run of digits rather than a project number.
const (
	MinYear = 1990
	MaxYear = 2099
)

// Parsed holds the parts extracted from a project folder name
type Parsed struct {
	Year        int    // Four-digit year
	FullNumber  string // Number as written in the folder name
	ShortNumber string // Sequence plus sub-job, without the year
	Name        string // Trimmed project name (may be empty)
	Convention  string // Name of the convention that matched
}

// nameTail matches the optional separator and name after the number
const nameTail = `(?:(?:\s*-\s*|[\s_]+)(.*))?$`

type convention struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (Parsed, bool)
}

var conventions = []convention{
	{
		name: "compact",
		re:   regexp.MustCompile(`^(\d{4})(\d{3})((?:\.\d{2,3})?)` + nameTail),
		build: func(m []string) (Parsed, bool) {
			year, ok := fourDigitYear(m[1])
			if !ok {
				return Parsed{}, false
			}
			return Parsed{
				Year:        year,
				FullNumber:  m[1] + m[2] + m[3],
				ShortNumber: m[2] + m[3],
				Name:        cleanName(m[4]),
			}, true
		},
	},
	{
		name: "dashed",
		re:   regexp.MustCompile(`^(\d{4})([-_])(\d{3,4})((?:\.\d{2,3})?)` + nameTail),
		build: func(m []string) (Parsed, bool) {
			year, ok := fourDigitYear(m[1])
			if !ok {
				return Parsed{}, false
			}
			return Parsed{
				Year:        year,
				FullNumber:  m[1] + m[2] + m[3] + m[4],
				ShortNumber: m[3] + m[4],
				Name:        cleanName(m[5]),
			}, true
		},
	},
	{
		name: "short-year",
		re:   regexp.MustCompile(`^(\d{2})([-_]?)(\d{3})((?:\.\d{2,3})?)` + nameTail),
		build: func(m []string) (Parsed, bool) {
			yy, err := strconv.Atoi(m[1])
			if err != nil {
				return Parsed{}, false
			}
			return Parsed{
				Year:        2000 + yy,
				FullNumber:  m[1] + m[2] + m[3] + m[4],
				ShortNumber: m[3] + m[4],
				Name:        cleanName(m[5]),
			}, true
		},
	},
}

// Parse extracts year, number, and name from a project folder name.
// Returns ErrNoMatch if no convention applies.
func Parse(folderName string) (Parsed, error) {
	s := strings.TrimSpace(folderName)
	if s == "" {
		return Parsed{}, ErrNoMatch
	}

	for _, c := range conventions {
		m := c.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		p, ok := c.build(m)
		if !ok {
			continue
		}
		p.Convention = c.name
		return p, nil
	}

	return Parsed{}, ErrNoMatch
}

// Matches reports whether the folder name follows a known convention
func Matches(folderName string) bool {
	_, err := Parse(folderName)
	return err == nil
}

// Conventions returns the convention names in the order they are tried
func Conventions() []string {
	names := make([]string, len(conventions))
	for i, c := range conventions {
		names[i] = c.name
	}
	return names
}

func fourDigitYear(s string) (int, bool) {
	year, err := strconv.Atoi(s)
	if err != nil || year < MinYear || year > MaxYear {
		return 0, false
	}
	return year, true
}

// cleanName trims whitespace and stray leading separators
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-_ ")
	return strings.Join(strings.Fields(s), " ")
}
