// Package version parses and orders release version strings such as
// "1.1.12", "v2.0.0-rc.1" or "1.3.0b2".
package version

import (
	"fmt"
	"strconv"
	"strings"

	msemver "github.com/Masterminds/semver/v3"
	"golang.org/x/mod/semver"
)

// ParseError reports a version string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// preMarkers are the pre-release markers accepted when glued directly to a
// numeric component (1.2.0rc1) or used as a trailing component (1.2.0.dev3).
var preMarkers = []string{"alpha", "beta", "preview", "pre", "dev", "rc", "a", "b", "c"}

// Version is an immutable parsed version. The zero value is not valid;
// obtain one from Parse or MustParse.
type Version struct {
	nums  []int
	pre   string
	build string
}

// Parse strips any leading non-numeric prefix (a "v" tag marker, "release-")
// and parses the remaining dotted numeric components with an optional
// pre-release suffix.
func Parse(s string) (Version, error) {
	in := s
	s = strings.TrimSpace(s)
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return Version{}, &ParseError{Input: in, Reason: "no numeric component"}
	}
	s = s[start:]

	var v Version
	if i := strings.IndexByte(s, '+'); i >= 0 {
		v.build = s[i+1:]
		s = s[:i]
		if v.build == "" {
			return Version{}, &ParseError{Input: in, Reason: "empty build metadata"}
		}
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.pre = s[i+1:]
		s = s[:i]
		if v.pre == "" {
			return Version{}, &ParseError{Input: in, Reason: "empty pre-release"}
		}
	}

	parts := strings.Split(s, ".")
	for i, p := range parts {
		if p == "" {
			return Version{}, &ParseError{Input: in, Reason: "empty component"}
		}
		last := i == len(parts)-1
		if n, err := strconv.Atoi(p); err == nil {
			v.nums = append(v.nums, n)
			continue
		}
		if !last || v.pre != "" {
			return Version{}, &ParseError{Input: in, Reason: fmt.Sprintf("non-numeric component %q", p)}
		}
		num, marker, ok := splitMarker(p)
		if !ok {
			return Version{}, &ParseError{Input: in, Reason: fmt.Sprintf("non-numeric component %q", p)}
		}
		if num != "" {
			n, _ := strconv.Atoi(num)
			v.nums = append(v.nums, n)
		}
		v.pre = marker
	}
	if len(v.nums) == 0 {
		return Version{}, &ParseError{Input: in, Reason: "no numeric component"}
	}
	if v.pre != "" && !semver.IsValid("v0.0.0-"+v.pre) {
		return Version{}, &ParseError{Input: in, Reason: fmt.Sprintf("invalid pre-release %q", v.pre)}
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// splitMarker splits "0rc1" into ("0", "rc1") and "dev3" into ("", "dev3").
// The remainder must start with a recognized pre-release marker.
func splitMarker(p string) (num, marker string, ok bool) {
	i := strings.IndexFunc(p, func(r rune) bool { return !isDigit(r) })
	if i < 0 {
		return "", "", false
	}
	num, rest := p[:i], p[i:]
	lower := strings.ToLower(rest)
	for _, m := range preMarkers {
		if !strings.HasPrefix(lower, m) {
			continue
		}
		tail := strings.TrimLeft(lower[len(m):], ".-_")
		if tail != "" && strings.IndexFunc(tail, func(r rune) bool { return !isDigit(r) }) >= 0 {
			continue
		}
		return num, lower, true
	}
	return "", "", false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Prerelease returns the pre-release marker, or "" for a final release.
func (v Version) Prerelease() string { return v.pre }

// Segments returns a copy of the numeric components.
func (v Version) Segments() []int {
	out := make([]int, len(v.nums))
	copy(out, v.nums)
	return out
}

// String re-serializes the version without any tag prefix.
// Parse(v.String()) yields a version equal to v.
func (v Version) String() string {
	var b strings.Builder
	for i, n := range v.nums {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if v.pre != "" {
		b.WriteByte('-')
		b.WriteString(v.pre)
	}
	if v.build != "" {
		b.WriteByte('+')
		b.WriteString(v.build)
	}
	return b.String()
}

// Equal reports whether a and b have the same precedence.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// Compare returns -1, 0 or +1. Numeric components are compared first, with
// missing trailing components treated as zero. On a numeric tie a final
// release orders after any pre-release of the same numbers. Two marker
// pre-releases order dev < alpha < beta < rc, then by number; other
// pre-releases use semver precedence. Build metadata is ignored.
func Compare(a, b Version) int {
	n := len(a.nums)
	if len(b.nums) > n {
		n = len(b.nums)
	}
	for i := 0; i < n; i++ {
		x, y := at(a.nums, i), at(b.nums, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	switch {
	case a.pre == b.pre:
		return 0
	case a.pre == "":
		return 1
	case b.pre == "":
		return -1
	}
	if x, xn, ok := prePhase(a.pre); ok {
		if y, yn, ok := prePhase(b.pre); ok {
			if x != y {
				return sign(x - y)
			}
			return sign(xn - yn)
		}
	}
	return semver.Compare("v0.0.0-"+a.pre, "v0.0.0-"+b.pre)
}

// prePhases orders PEP 440 style markers: dev < alpha < beta < rc.
var prePhases = []struct {
	marker string
	rank   int
}{
	{"dev", 0},
	{"alpha", 1}, {"a", 1},
	{"beta", 2}, {"b", 2},
	{"preview", 3}, {"pre", 3}, {"rc", 3}, {"c", 3},
}

// prePhase splits a marker-plus-number pre-release such as "dev3" or
// "rc.1" into its phase rank and number. Anything else is left to semver.
func prePhase(pre string) (rank, n int, ok bool) {
	for _, p := range prePhases {
		if !strings.HasPrefix(pre, p.marker) {
			continue
		}
		tail := strings.TrimLeft(pre[len(p.marker):], ".-_")
		if tail == "" {
			return p.rank, 0, true
		}
		if strings.IndexFunc(tail, func(r rune) bool { return !isDigit(r) }) >= 0 {
			return 0, 0, false
		}
		n, err := strconv.Atoi(tail)
		if err != nil {
			return 0, 0, false
		}
		return p.rank, n, true
	}
	return 0, 0, false
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}

func at(nums []int, i int) int {
	if i < len(nums) {
		return nums[i]
	}
	return 0
}

// IsNewer reports whether latest orders after current. If either string
// fails to parse the versions cannot be compared and IsNewer returns false.
func IsNewer(current, latest string) bool {
	c, err := Parse(current)
	if err != nil {
		return false
	}
	l, err := Parse(latest)
	if err != nil {
		return false
	}
	return Compare(l, c) > 0
}

// Satisfies reports whether v meets a Masterminds-style constraint such as
// "< 2.0.0" or "~1.4". An empty constraint is always satisfied.
// Only the first three numeric components take part in the check.
func Satisfies(v Version, constraint string) (bool, error) {
	if strings.TrimSpace(constraint) == "" {
		return true, nil
	}
	c, err := msemver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid update constraint %q: %w", constraint, err)
	}
	sv, err := msemver.NewVersion(v.semverCore())
	if err != nil {
		return false, fmt.Errorf("version %s not usable with constraint: %w", v, err)
	}
	return c.Check(sv), nil
}

// ValidateConstraint reports whether constraint parses.
func ValidateConstraint(constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	if _, err := msemver.NewConstraint(constraint); err != nil {
		return fmt.Errorf("invalid update constraint %q: %w", constraint, err)
	}
	return nil
}

func (v Version) semverCore() string {
	s := fmt.Sprintf("%d.%d.%d", at(v.nums, 0), at(v.nums, 1), at(v.nums, 2))
	if v.pre != "" {
		s += "-" + v.pre
	}
	return s
}
