package models

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Project represents one client engagement folder on the project drive
type Project struct {
	ID          int64     // Database row ID (0 until persisted)
	FolderName  string    // Directory name as found on disk
	Path        string    // Absolute path to the project folder
	Root        string    // Drive root the project was found under
	Year        int       // Four-digit project year
	FullNumber  string    // Full project number as written, e.g. "2024638.001"
	ShortNumber string    // Number without the year, e.g. "638.001"
	Name        string    // Project name following the number
	Tags        []string  // User-assigned tags
	Pinned      bool      // Pinned projects sort first in empty searches
	ModifiedAt  time.Time // Folder modification time at scan
	ScannedAt   time.Time // When the folder was last seen by a scan
}

// Key returns the project number with all non-digit characters removed.
// "2024638.001" and "2024-638-001" both yield "2024638001".
func (p *Project) Key() string {
	return NumberKey(p.FullNumber)
}

// DisplayName returns "<FullNumber> <Name>", or just the number when unnamed
func (p *Project) DisplayName() string {
	if p.Name == "" {
		return p.FullNumber
	}
	return p.FullNumber + " " + p.Name
}

// HasTag reports whether the project carries the tag (case-insensitive)
func (p *Project) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// NumberKey strips everything but digits from a project number
func NumberKey(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CompareNewest orders projects newest first: year, then sequence, then
// sub-job. It returns a negative value when a sorts before b.
func CompareNewest(a, b *Project) int {
	if a.Year != b.Year {
		return b.Year - a.Year
	}
	sa, ja := numberParts(a.ShortNumber)
	sb, jb := numberParts(b.ShortNumber)
	if sa != sb {
		return sb - sa
	}
	return jb - ja
}

// numberParts splits "638.001" into sequence 638 and sub-job 1
func numberParts(short string) (seq, sub int) {
	head, tail, _ := strings.Cut(short, ".")
	seq, _ = strconv.Atoi(head)
	sub, _ = strconv.Atoi(tail)
	return seq, sub
}

// ProjectType classifies how a project's drawings are organized
type ProjectType string

const (
	// ProjectTypeUnknown means neither discipline folders nor a Revit folder were found
	ProjectTypeUnknown ProjectType = "unknown"
	// ProjectTypeCAD means drawings live in Electrical/Mechanical/Plumbing folders
	ProjectTypeCAD ProjectType = "cad"
	// ProjectTypeRevit means the project has a Revit File folder
	ProjectTypeRevit ProjectType = "revit"
	// ProjectTypeHybrid means the project has both
	ProjectTypeHybrid ProjectType = "hybrid"
)

// ParseProjectType converts a string to a ProjectType, case-insensitively.
// Unrecognized values return ProjectTypeUnknown and false.
func ParseProjectType(s string) (ProjectType, bool) {
	switch ProjectType(strings.ToLower(strings.TrimSpace(s))) {
	case ProjectTypeCAD:
		return ProjectTypeCAD, true
	case ProjectTypeRevit:
		return ProjectTypeRevit, true
	case ProjectTypeHybrid:
		return ProjectTypeHybrid, true
	case ProjectTypeUnknown:
		return ProjectTypeUnknown, true
	}
	return ProjectTypeUnknown, false
}

// ClassifyProject derives the project type from the presence of CAD
// discipline content and a Revit folder.
func ClassifyProject(hasCAD, hasRevit bool) ProjectType {
	switch {
	case hasCAD && hasRevit:
		return ProjectTypeHybrid
	case hasCAD:
		return ProjectTypeCAD
	case hasRevit:
		return ProjectTypeRevit
	default:
		return ProjectTypeUnknown
	}
}
