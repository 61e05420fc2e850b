// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"sort"
	"strings"

	"github.com/tomtom215/churnscope/internal/models"
)

// Unknown is substituted for any absent categorical attribute.
const Unknown = "Unknown"

// combinedSeparator joins component values of a combined dimension.
const combinedSeparator = "/"

// Segment restricts a cohort lookup to users carrying one dimension value.
type Segment struct {
	Dimension string
	Value     string
}

// Dimension describes one categorical attribute to break churn down by.
type Dimension struct {
	// Name is the attribute name, or the label of a combined or derived dimension
	Name string

	// Values is the value domain to analyze. Empty means every observed value.
	Values []string

	// Ordered keeps Values in the supplied order instead of sorting by churn rate
	Ordered bool

	// Components turns the dimension into a combined one whose value is the
	// component values joined with "/". Events with any Unknown component are excluded.
	Components []string

	// Pattern turns the dimension into a derived one, valued per user and period
	// from the user's own activity. A derived segment member churns only when
	// inactive in the next period; moving to another value is not churn.
	Pattern *Pattern
}

// IsCombined reports whether the dimension is built from several attributes.
func (d Dimension) IsCombined() bool {
	return len(d.Components) > 0
}

// IsDerived reports whether the dimension value comes from a Pattern.
func (d Dimension) IsDerived() bool {
	return d.Pattern != nil
}

// valueOf returns the dimension value carried by e. The boolean is false when the
// event must not be indexed under this dimension.
func (d Dimension) valueOf(e models.Event) (string, bool) {
	if !d.IsCombined() {
		return e.Attribute(d.Name, Unknown), true
	}

	parts := make([]string, len(d.Components))
	for i, c := range d.Components {
		v := e.Attribute(c, Unknown)
		if v == Unknown {
			return "", false
		}
		parts[i] = v
	}
	return strings.Join(parts, combinedSeparator), true
}

// UserSet is a set of distinct user ids. Sets returned by ActivityIndex are shared
// and must be treated as read-only.
type UserSet map[string]struct{}

// Len returns the number of users in the set.
func (s UserSet) Len() int {
	return len(s)
}

// Contains reports whether id is a member.
func (s UserSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IntersectionLen counts the users present in both sets.
func (s UserSet) IntersectionLen(o UserSet) int {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for id := range small {
		if large.Contains(id) {
			n++
		}
	}
	return n
}

// DifferenceLen counts the users of s that are not in o.
func (s UserSet) DifferenceLen(o UserSet) int {
	return len(s) - s.IntersectionLen(o)
}

var emptySet = UserSet{}

// ActivityIndex groups distinct active users by period, and by period, dimension
// and value. It is built once per computation and is immutable afterwards.
type ActivityIndex struct {
	cohorts  map[Period]UserSet
	segments map[Period]map[string]map[string]UserSet
	values   map[string]map[string]struct{}
	derived  map[string]bool
	skipped  int
}

// IndexOption tunes NewActivityIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	minEvents int
}

// WithMinEventsPerPeriod counts a user as active in a period only with at least
// n events in it. Values below 2 keep the default of one event.
func WithMinEventsPerPeriod(n int) IndexOption {
	return func(o *indexOptions) {
		o.minEvents = n
	}
}

// userTally counts one user's events within one period.
type userTally struct {
	events  int
	buckets [][]int
}

// NewActivityIndex indexes events in a single pass. Events with an empty user id or
// a zero timestamp are skipped and counted in Skipped.
func NewActivityIndex(events []models.Event, dimensions []Dimension, opts ...IndexOption) *ActivityIndex {
	var o indexOptions
	for _, opt := range opts {
		opt(&o)
	}

	idx := &ActivityIndex{
		cohorts:  make(map[Period]UserSet),
		segments: make(map[Period]map[string]map[string]UserSet),
		values:   make(map[string]map[string]struct{}, len(dimensions)),
		derived:  make(map[string]bool),
	}

	var attributed, derived []Dimension
	for _, d := range dimensions {
		idx.values[d.Name] = make(map[string]struct{})
		if d.IsDerived() {
			idx.derived[d.Name] = true
			derived = append(derived, d)
			continue
		}
		attributed = append(attributed, d)
	}

	var tallies map[Period]map[string]*userTally
	if o.minEvents > 1 || len(derived) > 0 {
		tallies = make(map[Period]map[string]*userTally)
	}

	for _, e := range events {
		if !validEvent(e) {
			idx.skipped++
			continue
		}

		p := PeriodOf(e.Timestamp)
		cohort, ok := idx.cohorts[p]
		if !ok {
			cohort = make(UserSet)
			idx.cohorts[p] = cohort
		}
		cohort[e.UserID] = struct{}{}

		if tallies != nil {
			tally(tallies, p, e, derived)
		}

		for _, d := range attributed {
			v, ok := d.valueOf(e)
			if !ok {
				continue
			}
			idx.add(p, d.Name, v, e.UserID)
		}
	}

	for p, users := range tallies {
		for id, t := range users {
			if t.events < o.minEvents {
				idx.drop(p, id)
				continue
			}
			for i, d := range derived {
				idx.add(p, d.Name, d.Pattern.Classify(t.buckets[i]), id)
			}
		}
	}

	return idx
}

func tally(tallies map[Period]map[string]*userTally, p Period, e models.Event, derived []Dimension) {
	users, ok := tallies[p]
	if !ok {
		users = make(map[string]*userTally)
		tallies[p] = users
	}
	t, ok := users[e.UserID]
	if !ok {
		t = &userTally{buckets: make([][]int, len(derived))}
		for i, d := range derived {
			t.buckets[i] = make([]int, d.Pattern.Buckets)
		}
		users[e.UserID] = t
	}
	t.events++
	for i, d := range derived {
		if b := d.Pattern.Bucket(e.Timestamp); b >= 0 && b < len(t.buckets[i]) {
			t.buckets[i][b]++
		}
	}
}

// add records user under dimension value v in period p.
func (idx *ActivityIndex) add(p Period, dimension, v, user string) {
	byDim, ok := idx.segments[p]
	if !ok {
		byDim = make(map[string]map[string]UserSet)
		idx.segments[p] = byDim
	}
	byValue, ok := byDim[dimension]
	if !ok {
		byValue = make(map[string]UserSet)
		byDim[dimension] = byValue
	}
	users, ok := byValue[v]
	if !ok {
		users = make(UserSet)
		byValue[v] = users
	}
	users[user] = struct{}{}
	idx.values[dimension][v] = struct{}{}
}

// drop removes user from every set of period p.
func (idx *ActivityIndex) drop(p Period, user string) {
	delete(idx.cohorts[p], user)
	for _, byValue := range idx.segments[p] {
		for _, users := range byValue {
			delete(users, user)
		}
	}
}

// IsDerived reports whether dimension was indexed from a Pattern.
func (idx *ActivityIndex) IsDerived(dimension string) bool {
	return idx.derived[dimension]
}

// ActiveUsers returns the cohort of period p, restricted to filter when it is not nil.
// Absent periods and values yield an empty set.
func (idx *ActivityIndex) ActiveUsers(p Period, filter *Segment) UserSet {
	if filter == nil {
		if s, ok := idx.cohorts[p]; ok {
			return s
		}
		return emptySet
	}

	if s, ok := idx.segments[p][filter.Dimension][filter.Value]; ok {
		return s
	}
	return emptySet
}

// Values returns every value observed for the dimension in lexical order,
// including Unknown.
func (idx *ActivityIndex) Values(dimension string) []string {
	seen := idx.values[dimension]
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Skipped returns the number of events rejected while indexing.
func (idx *ActivityIndex) Skipped() int {
	return idx.skipped
}

func validEvent(e models.Event) bool {
	return e.UserID != "" && !e.Timestamp.IsZero()
}
