package driftmail

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Operator enumerates the comparison operators the query API accepts.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts-with"
	OpEndsWith    Operator = "ends-with"
	OpGreaterThan Operator = "greater-than"
	OpLessThan    Operator = "less-than"
)

// JoinOperator combines filter clauses. One uniform operator applies to the
// whole expression; mixing and/or with precedence is not supported.
type JoinOperator string

const (
	JoinAnd JoinOperator = "and"
	JoinOr  JoinOperator = "or"
)

// FilterClause is one field comparison in a query filter.
type FilterClause struct {
	Field    string
	Operator Operator
	Value    any
}

// ErrEmptyFilter is returned when no clause survives validation.
var ErrEmptyFilter = errors.New("driftmail: no valid filter clauses")

// BuildFilter renders clauses into one filter expression: each clause becomes
// operator(field,value) with string values quoted, joined verbatim by the
// join operator. Clauses missing a field, operator, or value are skipped and
// their indexes reported so callers can log them; the build fails only when
// every clause is invalid. Clause order is preserved as given: it is
// observable through the derived cache key and must not be canonicalized.
func BuildFilter(clauses []FilterClause, join JoinOperator) (expr string, skipped []int, err error) {
	if join != JoinAnd && join != JoinOr {
		return "", nil, fmt.Errorf("driftmail: invalid join operator %q", join)
	}
	parts := make([]string, 0, len(clauses))
	for i, clause := range clauses {
		if clause.Field == "" || clause.Operator == "" || clause.Value == nil {
			skipped = append(skipped, i)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(%s,%s)", clause.Operator, clause.Field, renderValue(clause.Value)))
	}
	if len(parts) == 0 {
		return "", skipped, ErrEmptyFilter
	}
	return strings.Join(parts, " "+string(join)+" "), skipped, nil
}

func renderValue(value any) string {
	if s, ok := value.(string); ok {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return fmt.Sprintf("%v", value)
}

// FilterCacheKey derives the cache key for a built filter expression.
// Identical expressions always map to the same key; reordered clauses
// produce a different expression and therefore a different key.
func FilterCacheKey(expr string) string {
	sum := sha256.Sum256([]byte(expr))
	return hex.EncodeToString(sum[:])
}
