package models

import (
	"strings"
	"time"
)

// Discipline is an engineering discipline used to organize CAD folders
type Discipline string

const (
	// DisciplineNone marks files outside any discipline folder
	DisciplineNone       Discipline = ""
	DisciplineElectrical Discipline = "electrical"
	DisciplineMechanical Discipline = "mechanical"
	DisciplinePlumbing   Discipline = "plumbing"
)

// Disciplines lists the known disciplines in display order
var Disciplines = []Discipline{DisciplineElectrical, DisciplineMechanical, DisciplinePlumbing}

// ParseDiscipline accepts a full name or its first letter ("e", "Mech", "plumbing")
func ParseDiscipline(s string) (Discipline, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DisciplineNone, false
	}
	for _, d := range Disciplines {
		if strings.HasPrefix(string(d), s) {
			return d, true
		}
	}
	return DisciplineNone, false
}

// Label returns the capitalized discipline name, or "Other"
func (d Discipline) Label() string {
	switch d {
	case DisciplineElectrical:
		return "Electrical"
	case DisciplineMechanical:
		return "Mechanical"
	case DisciplinePlumbing:
		return "Plumbing"
	default:
		return "Other"
	}
}

// Document is a single file found inside a project folder
type Document struct {
	Path       string     // Absolute path
	RelPath    string     // Path relative to the project folder
	Name       string     // Base file name
	Extension  string     // Lower-cased extension including the dot
	Size       int64      // Size in bytes
	ModTime    time.Time  // Last modification time
	Discipline Discipline // Discipline folder the file was found under
	Revit      bool       // True when the file lives in the Revit folder
}

// RevitInfo summarizes a project's Revit File folder
type RevitInfo struct {
	Folder  string   // Absolute path of the Revit folder ("" when absent)
	Models  []string // Relative paths of .rvt model files, backups excluded
	Version string   // Revit release year taken from markers, e.g. "2024"
	Cloud   bool     // True when a cloud (BIM 360 / ACC) marker was found
}

// Present reports whether a Revit folder was found
func (r RevitInfo) Present() bool {
	return r.Folder != ""
}

// DocumentIndex is the result of scanning a single project's documents
type DocumentIndex struct {
	ProjectPath string
	Type        ProjectType
	Disciplines map[Discipline]string // Discipline -> folder path
	Counts      map[Discipline]int    // Discipline -> number of files
	Revit       RevitInfo
	Files       []Document
	Errors      []error
	ScannedAt   time.Time
}

// FilesFor returns the documents tagged with the given discipline
func (idx *DocumentIndex) FilesFor(d Discipline) []Document {
	var out []Document
	for _, f := range idx.Files {
		if f.Discipline == d {
			out = append(out, f)
		}
	}
	return out
}
