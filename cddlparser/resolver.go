package cddlparser

// The rule table is built in a single pass over a parsed Document. Type
// rules and group rules live in separate namespaces; alternate rules
// (/= and //=) append to the base rule's choice list instead of redefining
// it. Declaration order is free: an alternate may precede its base.

// TypeRuleSet is one name in the type namespace: the base rule's choices
// with all alternates' choices appended in declaration order.
type TypeRuleSet struct {
	Name    string
	Params  []string
	Choices []*Type1

	hasBase bool
	basePos Pos
}

// GroupRuleSet is the group-namespace analog of TypeRuleSet.
type GroupRuleSet struct {
	Name    string
	Params  []string
	Choices []*GroupChoice

	hasBase bool
	basePos Pos
}

type RuleTable struct {
	types  map[string]*TypeRuleSet
	groups map[string]*GroupRuleSet

	root        string
	rootIsGroup bool
}

// fullName includes the socket prefix; $name and name are distinct rules.
func fullName(socket SocketPlug, name string) string {
	return socket.String() + name
}

func isSocketName(name string) bool {
	return len(name) > 0 && name[0] == '$'
}

// BuildRuleTable resolves a Document into a RuleTable, reporting duplicate
// rules, alternates of non-existent rules, and unresolved references.
func BuildRuleTable(doc *Document) (*RuleTable, []Error) {
	t := &RuleTable{
		types:  make(map[string]*TypeRuleSet),
		groups: make(map[string]*GroupRuleSet),
	}
	var errors []Error

	for i, rule := range doc.Rules {
		name := fullName(rule.Socket, rule.Name)
		if i == 0 {
			t.root = name
			t.rootIsGroup = rule.IsGroup
		}
		if rule.IsGroup {
			errors = append(errors, t.addGroupRule(name, rule)...)
		} else {
			errors = append(errors, t.addTypeRule(name, rule)...)
		}
	}

	// alternates that never found a base are only legal for sockets/plugs,
	// or when the base lives in the sibling namespace (a parenthesized
	// type rule doubles as a group)
	for name, set := range t.types {
		if set.hasBase || isSocketName(name) {
			continue
		}
		if gs, ok := t.groups[name]; ok && gs.hasBase {
			continue
		}
		errors = append(errors, Error{Pos: set.basePos,
			Message: "alternate of non-existent rule: " + name})
	}
	for name, set := range t.groups {
		if set.hasBase || isSocketName(name) {
			continue
		}
		if ts, ok := t.types[name]; ok && ts.hasBase {
			continue
		}
		errors = append(errors, Error{Pos: set.basePos,
			Message: "alternate of non-existent rule: " + name})
	}

	errors = append(errors, t.checkReferences(doc)...)
	return t, errors
}

func (t *RuleTable) addTypeRule(name string, rule *Rule) []Error {
	set, ok := t.types[name]
	if !ok {
		set = &TypeRuleSet{Name: name, basePos: rule.Start}
		t.types[name] = set
	}
	if !rule.IsAlternate {
		if set.hasBase {
			return []Error{{Pos: rule.Start, Message: "duplicate rule: " + name}}
		}
		set.hasBase = true
		set.basePos = rule.Start
		set.Params = rule.GenericParams
		// the base rule's choices come first, before any alternates that
		// happened to be declared earlier
		set.Choices = append(append([]*Type1{}, rule.Value.Choices...), set.Choices...)
		return nil
	}
	set.Choices = append(set.Choices, rule.Value.Choices...)
	return nil
}

func (t *RuleTable) addGroupRule(name string, rule *Rule) []Error {
	set, ok := t.groups[name]
	if !ok {
		set = &GroupRuleSet{Name: name, basePos: rule.Start}
		t.groups[name] = set
	}
	choices := entryAsGroupChoices(rule.Entry)
	if !rule.IsAlternate {
		if set.hasBase {
			return []Error{{Pos: rule.Start, Message: "duplicate rule: " + name}}
		}
		set.hasBase = true
		set.basePos = rule.Start
		set.Params = rule.GenericParams
		set.Choices = append(append([]*GroupChoice{}, choices...), set.Choices...)
		return nil
	}
	set.Choices = append(set.Choices, choices...)
	return nil
}

func entryAsGroupChoices(entry *GroupEntry) []*GroupChoice {
	if entry.Inline != nil && entry.Occurrence == nil && entry.Key == nil {
		return entry.Inline.Choices
	}
	return []*GroupChoice{{Entries: []*GroupEntry{entry}}}
}

// Root returns the starting rule when the caller does not name one: the
// first rule declared.
func (t *RuleTable) Root() (name string, isGroup bool) {
	return t.root, t.rootIsGroup
}

func (t *RuleTable) LookupType(name string) (*TypeRuleSet, bool) {
	set, ok := t.types[name]
	return set, ok
}

// LookupGroup finds a name in the group namespace. A type rule whose body
// is a single parenthesized group also answers group lookups, so that
// `g = (a: int)` can be referenced from entry position.
func (t *RuleTable) LookupGroup(name string) (*GroupRuleSet, bool) {
	if set, ok := t.groups[name]; ok {
		return set, ok
	}
	set, ok := t.types[name]
	if !ok || len(set.Choices) != 1 {
		return nil, false
	}
	t2 := set.Choices[0]
	if t2.Op != 0 || t2.Value.Kind != Type2Paren {
		return nil, false
	}
	return &GroupRuleSet{Name: name, Params: set.Params, Choices: t2.Value.Group.Choices, hasBase: true}, true
}

// Known reports whether a name resolves in either namespace.
func (t *RuleTable) Known(name string) bool {
	if _, ok := t.types[name]; ok {
		return true
	}
	_, ok := t.groups[name]
	return ok
}

// checkReferences walks every rule body and reports identifiers that
// resolve to nothing. Socket/plug names are deliberately allowed to be
// unbound; generic parameters are bound within their rule.
func (t *RuleTable) checkReferences(doc *Document) []Error {
	var errors []Error
	for _, rule := range doc.Rules {
		scope := make(map[string]struct{}, len(rule.GenericParams))
		for _, p := range rule.GenericParams {
			scope[p] = struct{}{}
		}
		w := &refWalker{table: t, scope: scope}
		if rule.IsGroup {
			w.walkEntry(rule.Entry)
		} else {
			w.walkType(rule.Value)
		}
		errors = append(errors, w.errors...)
	}
	return errors
}

type refWalker struct {
	table  *RuleTable
	scope  map[string]struct{}
	errors []Error
}

func (w *refWalker) checkIdent(socket SocketPlug, ident string, pos Pos) {
	if socket != NoSocket {
		return
	}
	if _, ok := w.scope[ident]; ok {
		return
	}
	if !w.table.Known(ident) {
		w.errors = append(w.errors, Error{Pos: pos, Message: "unknown rule: " + ident})
	}
}

func (w *refWalker) walkType(t *Type) {
	if t == nil {
		return
	}
	for _, t1 := range t.Choices {
		w.walkType1(t1)
	}
}

func (w *refWalker) walkType1(t1 *Type1) {
	if t1 == nil {
		return
	}
	w.walkType2(t1.Value)
	w.walkType2(t1.Arg)
}

func (w *refWalker) walkType2(t2 *Type2) {
	if t2 == nil {
		return
	}
	switch t2.Kind {
	case Type2Ident, Type2Unwrap, Type2ChoiceFromGroup:
		if t2.Kind != Type2ChoiceFromGroup || t2.Group == nil {
			w.checkIdent(t2.Socket, t2.Ident, t2.Start)
		}
		for _, arg := range t2.GenericArgs {
			w.walkType(arg)
		}
		w.walkGroup(t2.Group)
	case Type2Paren, Type2Map, Type2Array:
		w.walkGroup(t2.Group)
	case Type2Tag:
		w.walkType(t2.TagInner)
	}
}

func (w *refWalker) walkGroup(g *Group) {
	if g == nil {
		return
	}
	for _, gc := range g.Choices {
		for _, e := range gc.Entries {
			w.walkEntry(e)
		}
	}
}

func (w *refWalker) walkEntry(e *GroupEntry) {
	if e == nil {
		return
	}
	if e.Key != nil && e.Key.Type != nil {
		w.walkType1(e.Key.Type)
	}
	w.walkType(e.Value)
	w.walkGroup(e.Inline)
}
