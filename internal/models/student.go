package models

import (
	"fmt"
	"time"
)

// Group is the closed set of flower-named student groups. Values persist as
// their textual name so reordering or extending the set never corrupts
// stored rows.
type Group string

const (
	GroupLotus Group = "LOTUS"
	GroupRose  Group = "ROSE"
	GroupDaisy Group = "DAISY"
	GroupTulip Group = "TULIP"
)

// Groups lists every recognised group value.
func Groups() []Group {
	return []Group{GroupLotus, GroupRose, GroupDaisy, GroupTulip}
}

// Valid reports whether g is one of the recognised constants. The empty
// value counts as unset, not invalid.
func (g Group) Valid() bool {
	if g == "" {
		return true
	}
	for _, known := range Groups() {
		if g == known {
			return true
		}
	}
	return false
}

// ParseGroup resolves a raw textual value to a Group constant.
func ParseGroup(raw string) (Group, error) {
	g := Group(raw)
	if raw == "" || !g.Valid() {
		return "", fmt.Errorf("unknown student group %q", raw)
	}
	return g, nil
}

// Student represents a learner record. A zero ID marks an instance not yet
// persisted; the identifier is generated by storage on first insert and is
// immutable thereafter.
type Student struct {
	ID    int64     `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	DOB   time.Time `db:"dob" json:"dob"`
	Group Group     `db:"student_group" json:"group"`
}

// Saved reports whether the student has been assigned a storage identifier.
func (s Student) Saved() bool {
	return s.ID != 0
}

// DateOnly truncates t to a calendar date in UTC. The dob column carries no
// time component, so normalising before writes keeps round-trips comparable.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
