package query

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/services"
)

// clausePattern matches `prop OP value` with a single case-insensitive scan.
// Operator order matters: <= and >= must be tried before < and >.
var clausePattern = regexp.MustCompile(`(?i)^(.+?)(<=|<|>=|>|=| like | in )(.+?)$`)

// Clause separators. An unescaped " and " / " or " splits clauses even when
// it occurs inside a quoted value; the original parser behaves this way and
// the behavior is preserved deliberately (see the where tests).
var (
	andSeparator = regexp.MustCompile(`(?i) and `)
	orSeparator  = regexp.MustCompile(`(?i) or `)
)

// Predicate evaluates one record against a parsed where expression.
// Evaluation can fail (e.g. `like` against a non-string field); such
// failures surface as request errors.
type Predicate func(document.Doc) (bool, error)

// ParseWhere compiles a where expression. AND and OR never mix: the
// presence of " and " forces conjunctive semantics across all clauses,
// " or " disjunctive; with neither, the whole expression is one clause.
func ParseWhere(expr string) (Predicate, error) {
	clauseTexts := []string{strings.TrimSpace(expr)}
	conjunctive := true

	if andSeparator.MatchString(expr) {
		clauseTexts = andSeparator.Split(expr, -1)
	} else if orSeparator.MatchString(expr) {
		clauseTexts = orSeparator.Split(expr, -1)
		conjunctive = false
	}

	clauses := make([]Predicate, len(clauseTexts))
	for i, text := range clauseTexts {
		clause, err := parseClause(text)
		if err != nil {
			return nil, services.ErrInvalidWhere
		}
		clauses[i] = clause
	}

	return func(rec document.Doc) (bool, error) {
		acc := conjunctive
		for _, clause := range clauses {
			ok, err := clause(rec)
			if err != nil {
				return false, err
			}
			if conjunctive {
				acc = acc && ok
			} else {
				acc = acc || ok
			}
		}
		return acc, nil
	}, nil
}

// parseClause compiles a single `prop OP value` clause.
func parseClause(text string) (Predicate, error) {
	match := clausePattern.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("unrecognized clause: %s", text)
	}
	prop := strings.TrimSpace(match[1])
	operator := strings.ToLower(strings.TrimSpace(match[2]))
	rawValue := strings.TrimSpace(match[3])

	switch operator {
	case "<=", "<", ">=", ">":
		value, err := decodeOperand(rawValue)
		if err != nil {
			return nil, err
		}
		return relationalClause(prop, operator, value), nil
	case "=":
		value, err := decodeOperand(rawValue)
		if err != nil {
			return nil, err
		}
		return func(rec document.Doc) (bool, error) {
			return document.LooseEqual(rec[prop], value), nil
		}, nil
	case "like":
		value, err := decodeOperand(rawValue)
		if err != nil {
			return nil, err
		}
		needle, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("like operand must be a string")
		}
		return likeClause(prop, needle), nil
	case "in":
		values, err := decodeInList(rawValue)
		if err != nil {
			return nil, err
		}
		return func(rec document.Doc) (bool, error) {
			for _, v := range values {
				if document.LooseEqual(rec[prop], v) {
					return true, nil
				}
			}
			return false, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown operator: %s", operator)
}

func relationalClause(prop, operator string, value any) Predicate {
	return func(rec document.Doc) (bool, error) {
		cmp := document.Compare(rec[prop], value)
		switch operator {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
}

// likeClause does case-insensitive substring containment. A non-string
// field value fails the whole request, matching the original behavior.
func likeClause(prop, needle string) Predicate {
	lowered := strings.ToLower(needle)
	return func(rec document.Doc) (bool, error) {
		haystack, ok := rec[prop].(string)
		if !ok {
			return false, services.NewServiceError(constants.ErrCodeInvalidWhere,
				fmt.Sprintf("cannot apply like to non-string field %q", prop))
		}
		return strings.Contains(strings.ToLower(haystack), lowered), nil
	}
}

// decodeOperand JSON-decodes the right-hand side of a clause.
func decodeOperand(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("invalid operand %q: %w", raw, err)
	}
	return value, nil
}

// inListPattern extracts the parenthesized comma-list of an `in` operand.
var inListPattern = regexp.MustCompile(`\((.+?)\)`)

func decodeInList(raw string) ([]any, error) {
	match := inListPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil, fmt.Errorf("in operand must be a parenthesized list: %s", raw)
	}
	var values []any
	if err := json.Unmarshal([]byte("["+match[1]+"]"), &values); err != nil {
		return nil, fmt.Errorf("invalid in list %q: %w", raw, err)
	}
	return values, nil
}

// Filter applies a compiled predicate to a record list.
func Filter(records []document.Doc, pred Predicate) ([]document.Doc, error) {
	var out []document.Doc
	for _, rec := range records {
		ok, err := pred(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func errInvalidLoad(directive string) error {
	return services.NewServiceError(constants.ErrCodeInvalidRequest,
		fmt.Sprintf("invalid load directive: %s", directive))
}
