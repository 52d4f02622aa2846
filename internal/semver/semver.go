// Package semver implements the four-component version scheme used by project
// descriptors: MAJOR.MINOR.PATCH with an optional trailing revision label.
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidVersion = errors.New("semver: invalid version")

// Version is a parsed semantic version. Missing components default to zero.
type Version struct {
	Major    int
	Minor    int
	Patch    int
	Revision string
}

// Parse parses "M[.m[.p[.revision]]]" into a Version.
func Parse(data string) (Version, error) {
	raw := strings.TrimSpace(data)
	if raw == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}
	parts := strings.Split(raw, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("%w: %q has too many components", ErrInvalidVersion, data)
	}

	var v Version
	var err error
	if v.Major, err = parseUnit(parts[0], "major", data); err != nil {
		return Version{}, err
	}
	if len(parts) > 1 {
		if v.Minor, err = parseUnit(parts[1], "minor", data); err != nil {
			return Version{}, err
		}
	}
	if len(parts) > 2 {
		if v.Patch, err = parseUnit(parts[2], "patch", data); err != nil {
			return Version{}, err
		}
	}
	if len(parts) > 3 {
		v.Revision = parts[3]
	}
	return v, nil
}

func parseUnit(data string, unit string, full string) (int, error) {
	value, err := strconv.Atoi(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %q component %s=%q is not an integer", ErrInvalidVersion, full, unit, data)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q component %s must be non-negative", ErrInvalidVersion, full, unit)
	}
	return value, nil
}

// Compare returns -1, 0, or 1 ordering a before b.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	return strings.Compare(a.Revision, b.Revision)
}

func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}

func (v Version) Equal(other Version) bool {
	return Compare(v, other) == 0
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Revision != "" {
		s += "." + v.Revision
	}
	return s
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
