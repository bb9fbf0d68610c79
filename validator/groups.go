package validator

import (
	"fmt"

	"github.com/datapact/cddl/cddlparser"
)

// Group matching treats a group as a left-to-right consumer of an ordered
// positional input (arrays) or an unordered member multiset (maps). Maps
// are matched by iterated best-match with literal keys binding before
// generic ones; only a cut makes a binding committal.

func (r *run) matchGroupArray(path string, g *cddlparser.Group, items []any) Errors {
	var all Errors
	for _, gc := range g.Choices {
		pos, errs := r.matchEntriesSeq(path, gc.Entries, items, 0)
		if errs == nil {
			if pos == len(items) {
				return nil
			}
			errs = Errors{{Path: fmt.Sprintf("%s[%d]", path, pos), Reason: "unexpected extra array element"}}
		}
		all = append(all, errs...)
	}
	if len(g.Choices) > 1 {
		header := Errors{{Path: path, Reason: fmt.Sprintf("no group choice matched (%d alternatives)", len(g.Choices))}}
		return append(header, all...)
	}
	return all
}

// matchEntriesSeq consumes items positionally against a list of entries,
// returning the new cursor. Occurrences are greedy: consume as many items
// as match, up to the bound, then require the minimum.
func (r *run) matchEntriesSeq(path string, entries []*cddlparser.GroupEntry, items []any, pos int) (int, Errors) {
	for _, e := range entries {
		min, max, unbounded := occurrenceBounds(e)
		count := uint64(0)
		var lastErrs Errors

		for unbounded || count < max {
			if sub, ok := r.entrySubgroup(e); ok {
				newPos, errs := r.matchSubgroupSeq(path, sub, items, pos)
				if errs != nil {
					lastErrs = errs
					break
				}
				progressed := newPos > pos
				pos = newPos
				count++
				if !progressed {
					break
				}
				continue
			}
			if pos >= len(items) {
				break
			}
			itemPath := fmt.Sprintf("%s[%d]", path, pos)
			// member keys in array positions are documentation only
			errs := r.validateType(itemPath, e.Value, items[pos])
			if errs != nil {
				lastErrs = errs
				break
			}
			pos++
			count++
		}

		if count < min {
			if lastErrs != nil {
				return pos, lastErrs
			}
			return pos, Errors{{
				Path:   fmt.Sprintf("%s[%d]", path, pos),
				Reason: fmt.Sprintf("expected at least %d of %s, got %d", min, entryDesc(e), count),
			}}
		}
	}
	return pos, nil
}

func (r *run) matchSubgroupSeq(path string, g *cddlparser.Group, items []any, pos int) (int, Errors) {
	if r.depth++; r.depth > r.v.maxDepth {
		return pos, Errors{{Path: path, Reason: "recursion limit exceeded"}}
	}
	defer func() { r.depth-- }()

	var all Errors
	for _, gc := range g.Choices {
		newPos, errs := r.matchEntriesSeq(path, gc.Entries, items, pos)
		if errs == nil {
			return newPos, nil
		}
		all = append(all, errs...)
	}
	return pos, all
}

func entryDesc(e *cddlparser.GroupEntry) string {
	if e.Value != nil {
		return e.Value.String()
	}
	return "group"
}

func (r *run) matchGroupMap(path string, g *cddlparser.Group, members []mapMember) Errors {
	var all Errors
	for _, gc := range g.Choices {
		claimed := make([]bool, len(members))
		errs, cut := r.matchEntriesMap(path, gc.Entries, members, claimed)
		if errs == nil {
			var leftover Errors
			for i, m := range members {
				if !claimed[i] {
					leftover = append(leftover, Error{
						Path:   memberPath(path, m.Key),
						Reason: "unexpected map member",
					})
				}
			}
			if leftover == nil {
				return nil
			}
			errs = leftover
		}
		if cut {
			// the cut freezes the chosen member: no other choice is tried
			return errs
		}
		all = append(all, errs...)
	}
	if len(g.Choices) > 1 {
		header := Errors{{Path: path, Reason: fmt.Sprintf("no group choice matched (%d alternatives)", len(g.Choices))}}
		return append(header, all...)
	}
	return all
}

func (r *run) matchEntriesMap(path string, entries []*cddlparser.GroupEntry, members []mapMember, claimed []bool) (Errors, bool) {
	// entries with literal keys bind before generic (type) keys, so a
	// generic entry cannot steal a member a literal entry demands
	ordered := make([]*cddlparser.GroupEntry, 0, len(entries))
	var generic []*cddlparser.GroupEntry
	for _, e := range entries {
		if e.Key != nil && e.Key.Kind == cddlparser.MemberKeyType {
			generic = append(generic, e)
			continue
		}
		ordered = append(ordered, e)
	}
	ordered = append(ordered, generic...)

	for _, e := range ordered {
		if sub, ok := r.entrySubgroup(e); ok {
			if errs, cut := r.matchSubgroupOccurrenceMap(path, e, sub, members, claimed); errs != nil {
				return errs, cut
			}
			continue
		}
		if errs, cut := r.matchMapEntry(path, e, members, claimed); errs != nil {
			return errs, cut
		}
	}
	return nil, false
}

func (r *run) matchSubgroupOccurrenceMap(path string, e *cddlparser.GroupEntry, g *cddlparser.Group, members []mapMember, claimed []bool) (Errors, bool) {
	min, max, unbounded := occurrenceBounds(e)
	count := uint64(0)
	for unbounded || count < max {
		before := countClaimed(claimed)
		trial := make([]bool, len(claimed))
		copy(trial, claimed)
		errs, cut := r.matchSubgroupMap(path, g, members, trial)
		if errs != nil {
			if cut {
				return errs, true
			}
			if count < min {
				return errs, false
			}
			break
		}
		copy(claimed, trial)
		count++
		if countClaimed(claimed) == before {
			break // the subgroup matched without claiming anything
		}
	}
	if count < min {
		return Errors{{Path: path, Reason: fmt.Sprintf("expected at least %d occurrences of group", min)}}, false
	}
	return nil, false
}

func (r *run) matchSubgroupMap(path string, g *cddlparser.Group, members []mapMember, claimed []bool) (Errors, bool) {
	if r.depth++; r.depth > r.v.maxDepth {
		return Errors{{Path: path, Reason: "recursion limit exceeded"}}, false
	}
	defer func() { r.depth-- }()

	var all Errors
	for _, gc := range g.Choices {
		trial := make([]bool, len(claimed))
		copy(trial, claimed)
		errs, cut := r.matchEntriesMap(path, gc.Entries, members, trial)
		if errs == nil {
			copy(claimed, trial)
			return nil, false
		}
		if cut {
			return errs, true
		}
		all = append(all, errs...)
	}
	return all, false
}

// matchMapEntry binds one keyed entry against unclaimed members, claiming
// up to the occurrence bound of them.
func (r *run) matchMapEntry(path string, e *cddlparser.GroupEntry, members []mapMember, claimed []bool) (Errors, bool) {
	if e.Key == nil {
		return Errors{{Path: path, Reason: "map entry without member key: " + entryDesc(e)}}, false
	}
	min, max, unbounded := occurrenceBounds(e)
	count := uint64(0)
	var lastErrs Errors

	for i, m := range members {
		if claimed[i] {
			continue
		}
		if !unbounded && count >= max {
			break
		}
		matched, errs, cut := r.tryMember(path, e, m)
		if cut {
			return errs, true
		}
		if !matched {
			continue
		}
		if errs != nil {
			// key matched but value did not; without a cut the member may
			// still be claimed by a later (generic) entry
			lastErrs = errs
			continue
		}
		claimed[i] = true
		count++
	}

	if count < min {
		if lastErrs != nil {
			return lastErrs, false
		}
		return Errors{{
			Path:   memberPathForKey(path, e.Key),
			Reason: "missing required map member",
		}}, false
	}
	return nil, false
}

// tryMember checks whether a member's key fits the entry's member key, and
// if so whether its value fits the entry's type. cut is only reported when
// the key carries a cut and the value fails.
func (r *run) tryMember(path string, e *cddlparser.GroupEntry, m mapMember) (matched bool, errs Errors, cut bool) {
	ops := r.ops()
	key := e.Key
	switch key.Kind {
	case cddlparser.MemberKeyBareword:
		if !ops.KeyEqualsBareword(key.Bareword, m.Key) {
			return false, nil, false
		}
	case cddlparser.MemberKeyValue:
		if !ops.KeyEqualsLiteral(key.Value, m.Key) {
			return false, nil, false
		}
	case cddlparser.MemberKeyType:
		if keyErrs := r.validateType1(memberPath(path, m.Key), key.Type, m.Key); keyErrs != nil {
			return false, nil, false
		}
	}
	valueErrs := r.validateType(memberPath(path, m.Key), e.Value, m.Value)
	if valueErrs != nil {
		return true, valueErrs, key.Cut
	}
	return true, nil, false
}

func countClaimed(claimed []bool) int {
	n := 0
	for _, c := range claimed {
		if c {
			n++
		}
	}
	return n
}

func memberPath(path string, key any) string {
	if s, ok := key.(string); ok {
		return path + "." + s
	}
	return fmt.Sprintf("%s.%v", path, key)
}

func memberPathForKey(path string, key *cddlparser.MemberKey) string {
	switch key.Kind {
	case cddlparser.MemberKeyBareword:
		return path + "." + key.Bareword
	case cddlparser.MemberKeyValue:
		if key.Value.Kind == cddlparser.TextValue {
			return path + "." + key.Value.Text
		}
		return fmt.Sprintf("%s.%s", path, key.Value.String())
	}
	return path
}
