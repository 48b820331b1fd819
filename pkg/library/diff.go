package library

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// ScriptChange records one detected difference between two generations.
// A nil Previous denotes an addition, a nil Current a removal; both nil
// never occurs. SuiteID is empty for changes to the example script itself.
type ScriptChange struct {
	ExampleID string
	SuiteID   string
	Path      string
	ChangedAt time.Time
	Previous  *string
	Current   *string
}

// IsSuiteChange reports whether the change concerns a test suite rather
// than the example script.
func (c ScriptChange) IsSuiteChange() bool {
	return c.SuiteID != ""
}

// Describe renders a short human-readable summary of the change.
func (c ScriptChange) Describe() string {
	verb := "updated"
	switch {
	case c.Previous == nil:
		verb = "added"
	case c.Current == nil:
		verb = "removed"
	}

	file := filepath.Base(c.Path)
	if c.IsSuiteChange() {
		return fmt.Sprintf("example %q test suite %q %s (%s)", c.ExampleID, c.SuiteID, verb, file)
	}
	return fmt.Sprintf("example %q script %s (%s)", c.ExampleID, verb, file)
}

// UnifiedDiff renders the change as a unified diff between the previous
// and current content.
func (c ScriptChange) UnifiedDiff() (string, error) {
	var previous, current string
	if c.Previous != nil {
		previous = *c.Previous
	}
	if c.Current != nil {
		current = *c.Current
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: "previous",
		ToFile:   "current",
		Context:  3,
	})
}

// diffSnapshots is the derived relation between two full generations: it
// is recomputed from both maps, never tracked incrementally. Per example
// it emits at most one script change followed by suite changes in id
// order.
func diffSnapshots(old, new map[string]Example) []ScriptChange {
	now := time.Now()
	var changes []ScriptChange

	for _, id := range sortedUnionKeys(old, new) {
		prev, hadPrev := old[id]
		cur, hasCur := new[id]

		switch {
		case hadPrev && hasCur:
			if prev.Script != cur.Script {
				changes = append(changes, ScriptChange{
					ExampleID: id,
					Path:      cur.ScriptPath,
					ChangedAt: now,
					Previous:  strptr(prev.Script),
					Current:   strptr(cur.Script),
				})
			}
			changes = append(changes, diffSuites(id, now, prev.TestSuites, cur.TestSuites)...)

		case hasCur:
			changes = append(changes, ScriptChange{
				ExampleID: id,
				Path:      cur.ScriptPath,
				ChangedAt: now,
				Current:   strptr(cur.Script),
			})
			changes = append(changes, diffSuites(id, now, nil, cur.TestSuites)...)

		default:
			changes = append(changes, ScriptChange{
				ExampleID: id,
				Path:      prev.ScriptPath,
				ChangedAt: now,
				Previous:  strptr(prev.Script),
			})
			changes = append(changes, diffSuites(id, now, prev.TestSuites, nil)...)
		}
	}

	return changes
}

func diffSuites(exampleID string, now time.Time, old, new []TestSuite) []ScriptChange {
	oldByID := suitesByID(old)
	newByID := suitesByID(new)

	ids := make([]string, 0, len(oldByID)+len(newByID))
	for id := range oldByID {
		ids = append(ids, id)
	}
	for id := range newByID {
		if _, seen := oldByID[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var changes []ScriptChange
	for _, id := range ids {
		prev, hadPrev := oldByID[id]
		cur, hasCur := newByID[id]

		change := ScriptChange{
			ExampleID: exampleID,
			SuiteID:   id,
			ChangedAt: now,
		}
		switch {
		case hadPrev && hasCur:
			if prev.Script == cur.Script {
				continue
			}
			change.Path = cur.Path
			change.Previous = strptr(prev.Script)
			change.Current = strptr(cur.Script)
		case hasCur:
			change.Path = cur.Path
			change.Current = strptr(cur.Script)
		default:
			change.Path = prev.Path
			change.Previous = strptr(prev.Script)
		}
		changes = append(changes, change)
	}
	return changes
}

func suitesByID(suites []TestSuite) map[string]TestSuite {
	byID := make(map[string]TestSuite, len(suites))
	for _, s := range suites {
		byID[s.ID] = s
	}
	return byID
}

func sortedUnionKeys(a, b map[string]Example) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, seen := a[k]; !seen {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func strptr(s string) *string {
	return &s
}
