package core

// validation.go checks mapped rows against a RuleSet before they reach
// storage.
//
// Every field is evaluated and every failure is collected, so one report
// lists all the problems of a row. An empty value only fails "required";
// every other rule is skipped for it.

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value
	Rule    string // The failing rule
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowValidator validates mapped rows against a rule set.
type RowValidator struct {
	rules    RuleSet
	validate *validator.Validate
}

// NewRowValidator creates a validator for rules.
func NewRowValidator(rules RuleSet) *RowValidator {
	v := validator.New()
	_ = v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		_, err := strconv.ParseInt(fl.Field().String(), 10, 64)
		return err == nil
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("loosebool", func(fl validator.FieldLevel) bool {
		_, ok := ParseBool(fl.Field().String())
		return ok
	})

	return &RowValidator{rules: rules, validate: v}
}

// Rules returns the rule set being applied.
func (v *RowValidator) Rules() RuleSet {
	return v.rules
}

// ValidateRow returns all validation errors of row, in field order.
func (v *RowValidator) ValidateRow(row Row) []ValidationError {
	var errs []ValidationError

	for _, fr := range v.rules {
		value := row[fr.Field]
		numeric := hasNumericRule(fr.Rules)

		for _, rule := range fr.Rules {
			if value == "" && rule.Name != "required" {
				continue
			}
			if v.check(rule, value, numeric) {
				continue
			}
			errs = append(errs, ValidationError{
				Field:   fr.Field,
				Value:   value,
				Rule:    rule.Name,
				Message: ruleMessage(rule, numeric),
			})
		}
	}

	return errs
}

// Validate returns a RowValidationError for line when row fails any rule.
func (v *RowValidator) Validate(line int, row Row) error {
	if errs := v.ValidateRow(row); len(errs) > 0 {
		return &RowValidationError{Line: line, Errors: errs}
	}
	return nil
}

func (v *RowValidator) check(rule Rule, value string, numeric bool) bool {
	switch rule.Name {
	case "required":
		return value != ""
	case "nullable", "string":
		return true
	case "integer":
		return v.is(value, "integer")
	case "numeric":
		return v.is(value, "numeric")
	case "boolean":
		return v.is(value, "loosebool")
	case "date":
		return v.is(value, "date")
	case "date_format":
		_, err := time.Parse(rule.Params[0], value)
		return err == nil
	case "email":
		return v.is(value, "email")
	case "url":
		return v.is(value, "url")
	case "uuid":
		return v.is(value, "uuid")
	case "ip":
		return v.is(value, "ip")
	case "alpha":
		return v.is(value, "alpha")
	case "alpha_num":
		return v.is(value, "alphanum")
	case "in":
		return slices.Contains(rule.Params, value)
	case "not_in":
		return !slices.Contains(rule.Params, value)
	case "regex":
		return rule.re.MatchString(value)
	case "min", "max", "size", "between":
		return v.checkBounds(rule, value, numeric)
	}
	return false
}

// checkBounds compares the number itself when the field is numeric and
// the length in characters otherwise.
func (v *RowValidator) checkBounds(rule Rule, value string, numeric bool) bool {
	var tag string
	switch rule.Name {
	case "min":
		tag = "min=" + rule.Params[0]
	case "max":
		tag = "max=" + rule.Params[0]
	case "size":
		tag = "len=" + rule.Params[0]
	case "between":
		tag = "min=" + rule.Params[0] + ",max=" + rule.Params[1]
	}

	if numeric {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			// Reported by the integer/numeric rule.
			return true
		}
		return v.validate.Var(n, tag) == nil
	}
	for _, p := range rule.Params {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return v.validate.Var(value, tag) == nil
}

func (v *RowValidator) is(value, tag string) bool {
	return v.validate.Var(value, tag) == nil
}

func hasNumericRule(rules []Rule) bool {
	for _, r := range rules {
		if r.Name == "integer" || r.Name == "numeric" {
			return true
		}
	}
	return false
}

func ruleMessage(rule Rule, numeric bool) string {
	p := rule.Params
	unit := ""
	if !numeric {
		unit = " characters"
	}

	switch rule.Name {
	case "required":
		return "is required"
	case "integer":
		return "must be an integer"
	case "numeric":
		return "must be a number"
	case "boolean":
		return "must be true or false"
	case "date":
		return "is not a valid date"
	case "date_format":
		return fmt.Sprintf("does not match the format %s", p[0])
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "ip":
		return "must be a valid IP address"
	case "alpha":
		return "may only contain letters"
	case "alpha_num":
		return "may only contain letters and numbers"
	case "in":
		return "must be one of: " + strings.Join(p, ", ")
	case "not_in":
		return "must not be one of: " + strings.Join(p, ", ")
	case "regex":
		return "format is invalid"
	case "min":
		return fmt.Sprintf("must be at least %s%s", p[0], unit)
	case "max":
		return fmt.Sprintf("may not be greater than %s%s", p[0], unit)
	case "size":
		return fmt.Sprintf("must be %s%s", p[0], unit)
	case "between":
		return fmt.Sprintf("must be between %s and %s%s", p[0], p[1], unit)
	}
	return "is invalid"
}
