package coupon

// mapRuleSet implements RuleSet using a map for O(1) lookups.
type mapRuleSet struct {
	rules map[string]Rule
}

func newMapRuleSet(capacity int) *mapRuleSet {
	return &mapRuleSet{
		rules: make(map[string]Rule, capacity),
	}
}

// NewRuleSet builds a set from rules. Later rules replace earlier ones with the same code.
func NewRuleSet(rules ...Rule) RuleSet {
	set := newMapRuleSet(len(rules))
	for _, r := range rules {
		set.Add(r)
	}
	return set
}

// Lookup returns the rule for a code.
func (s *mapRuleSet) Lookup(code string) (Rule, bool) {
	r, ok := s.rules[code]
	return r, ok
}

// Size returns the number of rules in the set.
func (s *mapRuleSet) Size() int {
	return len(s.rules)
}

// Add adds or replaces a rule.
func (s *mapRuleSet) Add(r Rule) {
	s.rules[r.Code] = r
}

