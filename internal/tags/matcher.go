// Package tags evaluates tag expressions against the tag sets of config sources.
//
// An Expression is an OR of clauses; a clause is an AND of tokens:
//
//	tags.Parse("a, b")   // a OR b
//	tags.Parse("a+b, c") // (a AND b) OR c
package tags

import (
	"regexp"
	"strings"
)

var clauseSplitPattern = regexp.MustCompile(`[\s,]+`)

// Clause is a group of tokens that must all be present.
type Clause []string

// Expression is an ordered list of clauses where any satisfied clause matches.
type Expression []Clause

// Or builds an expression where each token is its own clause.
func Or(tokens ...string) Expression {
	expr := make(Expression, 0, len(tokens))
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			expr = append(expr, Clause{token})
		}
	}
	return expr
}

// And builds an expression with one clause requiring every token.
func And(tokens ...string) Expression {
	clause := normalizeClause(tokens)
	if len(clause) == 0 {
		return nil
	}
	return Expression{clause}
}

// Parse reads a textual expression: commas or whitespace separate OR clauses,
// '+' joins tokens inside one AND clause.
func Parse(raw string) Expression {
	var expr Expression
	for _, part := range clauseSplitPattern.Split(raw, -1) {
		clause := normalizeClause(strings.Split(part, "+"))
		if len(clause) > 0 {
			expr = append(expr, clause)
		}
	}
	return expr
}

// Empty reports whether the expression has no clauses and therefore matches everything.
func (e Expression) Empty() bool {
	return len(e) == 0
}

// String renders the expression back into Parse syntax.
func (e Expression) String() string {
	parts := make([]string, 0, len(e))
	for _, clause := range e {
		parts = append(parts, strings.Join(clause, "+"))
	}
	return strings.Join(parts, ", ")
}

// Matches checks whether the available tags satisfy the expression.
// Params: requested expression and tags attached to a source.
// Returns: true for an empty expression, or when any non-empty clause is fully present.
func Matches(expr Expression, available []string) bool {
	if expr.Empty() {
		return true
	}
	set := make(map[string]struct{}, len(available))
	for _, tag := range available {
		set[strings.TrimSpace(tag)] = struct{}{}
	}
	for _, clause := range expr {
		if clauseSatisfied(clause, set) {
			return true
		}
	}
	return false
}

// clauseSatisfied reports whether every token of a clause is present.
// An empty clause never matches, so it cannot widen a filter by accident.
func clauseSatisfied(clause Clause, set map[string]struct{}) bool {
	if len(clause) == 0 {
		return false
	}
	for _, token := range clause {
		if _, ok := set[strings.TrimSpace(token)]; !ok {
			return false
		}
	}
	return true
}

func normalizeClause(tokens []string) Clause {
	clause := make(Clause, 0, len(tokens))
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			clause = append(clause, token)
		}
	}
	return clause
}
