package domain

import (
	"github.com/Masterminds/semver/v3"
)

// Dialect identifies which flavour of the Mealie API a server speaks.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectV0
	DialectV1
)

func (d Dialect) String() string {
	switch d {
	case DialectV0:
		return "v0"
	case DialectV1:
		return "v1"
	default:
		return "unknown"
	}
}

var (
	v0Constraint = mustConstraint("< 1.0.0")
	v1Constraint = mustConstraint(">= 1.0.0")
)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// DialectForMajor maps a server's major version to the API dialect it speaks.
// Negative versions are unknown.
func DialectForMajor(major int) Dialect {
	if major < 0 {
		return DialectUnknown
	}
	v := semver.New(uint64(major), 0, 0, "", "")
	switch {
	case v1Constraint.Check(v):
		return DialectV1
	case v0Constraint.Check(v):
		return DialectV0
	default:
		return DialectUnknown
	}
}
