// Package export renders graduation rosters into downloadable documents.
package export

import "strconv"

// RosterRow is one student line on a graduation roster.
type RosterRow struct {
	StudentID   string
	StudentName string
	CohortYear  int
	Eligible    bool
}

// Roster is the renderable graduation roster for one program.
type Roster struct {
	Program string
	Rows    []RosterRow
}

var rosterColumns = []string{"Student ID", "Student Name", "Cohort Year", "Eligible"}

func (r RosterRow) cells() []string {
	eligible := "NO"
	if r.Eligible {
		eligible = "YES"
	}
	return []string{r.StudentID, r.StudentName, strconv.Itoa(r.CohortYear), eligible}
}
