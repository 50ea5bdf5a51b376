package core

// rules.go parses declarative validation rules.
//
// A rule expression is a pipe-delimited list of predicates, each optionally
// followed by ":" and comma-separated parameters:
//
//	required|integer|between:1,120
//
// Rule files are YAML (or JSON) documents mapping a field name to either an
// expression string or a list of single rules. The list form is needed when
// a parameter contains "|", as regular expressions often do:
//
//	email: required|email
//	code:
//	  - required
//	  - regex:^(A|B)[0-9]+$

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one predicate with its parameters.
type Rule struct {
	Name   string
	Params []string

	re *regexp.Regexp
}

func (r Rule) String() string {
	if len(r.Params) == 0 {
		return r.Name
	}
	return r.Name + ":" + strings.Join(r.Params, ",")
}

// FieldRules holds the rules of one field, in declaration order.
type FieldRules struct {
	Field string
	Rules []Rule
}

// RuleSet is ordered by field name.
type RuleSet []FieldRules

// Fields returns the field names carrying rules.
func (s RuleSet) Fields() []string {
	names := make([]string, len(s))
	for i, fr := range s {
		names[i] = fr.Field
	}
	return names
}

// Narrow keeps only the rules for fields present in spec. Update runs use
// it so attributes that aren't being written aren't re-validated.
func (s RuleSet) Narrow(spec FieldSpec) RuleSet {
	out := make(RuleSet, 0, len(s))
	for _, fr := range s {
		if spec.Has(fr.Field) {
			out = append(out, fr)
		}
	}
	return out
}

// ruleParams lists the accepted rules and their parameter arity.
// -1 means one or more.
var ruleParams = map[string]int{
	"required":    0,
	"nullable":    0,
	"string":      0,
	"integer":     0,
	"numeric":     0,
	"boolean":     0,
	"date":        0,
	"date_format": 1,
	"email":       0,
	"url":         0,
	"uuid":        0,
	"ip":          0,
	"alpha":       0,
	"alpha_num":   0,
	"in":          -1,
	"not_in":      -1,
	"min":         1,
	"max":         1,
	"size":        1,
	"between":     2,
	"regex":       1,
}

// ParseRule parses a single "name[:params]" predicate.
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	name, rawParams, hasParams := strings.Cut(s, ":")
	name = strings.ToLower(strings.TrimSpace(name))

	arity, ok := ruleParams[name]
	if !ok {
		return Rule{}, fmt.Errorf("%w: unknown rule '%s'", ErrInvalidRules, name)
	}

	rule := Rule{Name: name}
	if hasParams {
		switch name {
		case "regex", "date_format":
			// The whole remainder is one parameter.
			rule.Params = []string{rawParams}
		default:
			for _, p := range strings.Split(rawParams, ",") {
				rule.Params = append(rule.Params, strings.TrimSpace(p))
			}
		}
	}

	switch {
	case arity == -1 && len(rule.Params) == 0,
		arity >= 0 && len(rule.Params) != arity:
		return Rule{}, fmt.Errorf("%w: rule '%s' expects %s", ErrInvalidRules, name, arityText(arity))
	}

	switch name {
	case "min", "max", "size", "between":
		for _, p := range rule.Params {
			if _, err := strconv.ParseFloat(p, 64); err != nil {
				return Rule{}, fmt.Errorf("%w: rule '%s' needs numeric parameters, got %q", ErrInvalidRules, name, p)
			}
		}
	case "regex":
		re, err := regexp.Compile(rule.Params[0])
		if err != nil {
			return Rule{}, fmt.Errorf("%w: rule 'regex': %v", ErrInvalidRules, err)
		}
		rule.re = re
	}

	return rule, nil
}

func arityText(arity int) string {
	switch arity {
	case -1:
		return "at least one parameter"
	case 0:
		return "no parameters"
	case 1:
		return "one parameter"
	default:
		return strconv.Itoa(arity) + " parameters"
	}
}

// ParseRuleExpression parses a pipe-delimited rule expression.
func ParseRuleExpression(expr string) ([]Rule, error) {
	var rules []Rule
	for _, part := range strings.Split(expr, "|") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		rule, err := ParseRule(part)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := checkLengthBounds(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// checkLengthBounds requires whole, non-negative bounds when min, max,
// size and between measure length, i.e. without an integer or numeric rule.
func checkLengthBounds(rules []Rule) error {
	if hasNumericRule(rules) {
		return nil
	}
	for _, r := range rules {
		if !isBoundRule(r.Name) {
			continue
		}
		for _, p := range r.Params {
			if n, err := strconv.Atoi(p); err != nil || n < 0 {
				return fmt.Errorf("%w: rule '%s' measures length and needs whole numbers, got %q", ErrInvalidRules, r.Name, p)
			}
		}
	}
	return nil
}

func isBoundRule(name string) bool {
	switch name {
	case "min", "max", "size", "between":
		return true
	}
	return false
}

// NewRuleSet builds a RuleSet from field -> expression pairs.
func NewRuleSet(exprs map[string]string) (RuleSet, error) {
	set := make(RuleSet, 0, len(exprs))
	for field, expr := range exprs {
		rules, err := ParseRuleExpression(expr)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		set = append(set, FieldRules{Field: field, Rules: rules})
	}
	sortRuleSet(set)
	return set, nil
}

// LoadRuleFile reads a YAML or JSON rule file.
func LoadRuleFile(path string) (RuleSet, error) {
	if err := checkInputFile(path); err != nil {
		return nil, &FileError{Label: "Rules file", Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Label: "Rules file", Path: path, Err: ErrFileNotReadable}
	}

	set, err := ParseRuleDocument(data)
	if err != nil {
		return nil, &FileError{Label: "Rules file", Path: path, Err: err}
	}
	return set, nil
}

// ParseRuleDocument decodes a rule document.
func ParseRuleDocument(data []byte) (RuleSet, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrInvalidRules)
	}

	set := make(RuleSet, 0, len(doc))
	for field, raw := range doc {
		var (
			rules []Rule
			err   error
		)

		switch v := raw.(type) {
		case string:
			rules, err = ParseRuleExpression(v)
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: field '%s': rules must be strings", ErrInvalidRules, field)
				}
				var rule Rule
				if rule, err = ParseRule(s); err != nil {
					break
				}
				rules = append(rules, rule)
			}
			if err == nil {
				err = checkLengthBounds(rules)
			}
		default:
			return nil, fmt.Errorf("%w: field '%s': expected a string or a list", ErrInvalidRules, field)
		}

		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		set = append(set, FieldRules{Field: field, Rules: rules})
	}

	sortRuleSet(set)
	return set, nil
}

func sortRuleSet(set RuleSet) {
	sort.Slice(set, func(i, j int) bool { return set[i].Field < set[j].Field })
}
