// Package schema parses the declarative per-column expectations that drive
// reconciliation: for each column, an expected TypeTag and a collision
// strategy to apply when an observed value doesn't match it.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"rowsync/internal/value"
)

// Strategy names the collision-resolution policy applied to a column whose
// observed value doesn't match its expected type.
type Strategy int

const (
	// Ignore leaves the mismatched value untouched.
	Ignore Strategy = iota
	// Cast attempts a deterministic conversion via the reconciler's policy
	// table.
	Cast
	// NewCol quarantines the value into a sibling column named after its
	// type slug.
	NewCol
	// Remove nullifies the value in place; the column itself is kept (see
	// the Remove open question resolution in DESIGN.md).
	Remove
)

var strategyNames = map[string]Strategy{
	"ignore":  Ignore,
	"cast":    Cast,
	"new_col": NewCol,
	"remove":  Remove,
}

func (s Strategy) String() string {
	for name, v := range strategyNames {
		if v == s {
			return name
		}
	}
	return "ignore"
}

// ParseStrategy parses a case-insensitive strategy name; "new_col" is also
// accepted without its underscore ("NewCol"). Unrecognized names are a
// ConfigError: schema loading never silently defaults.
func ParseStrategy(text string) (Strategy, error) {
	key := strings.ToLower(text)
	if key == "newcol" {
		key = "new_col"
	}
	s, ok := strategyNames[key]
	if !ok {
		return Ignore, fmt.Errorf("%w: unrecognized collision strategy %q", ErrInvalidSchema, text)
	}
	return s, nil
}

// ErrInvalidSchema wraps every schema-loading failure: unknown dtype name,
// unknown strategy name, or malformed JSON. Callers should treat it as a
// ConfigError.
var ErrInvalidSchema = fmt.Errorf("schema: invalid schema")

// ColumnRule is the resolved, typed expectation for one column.
type ColumnRule struct {
	DType      value.TypeTag
	Strategy   Strategy
	SubSchema  *Schema
}

// Schema is the parsed, validated mapping from column name to ColumnRule.
// sub_schema is retained on the rule but reconciliation consumes only the
// top level.
type Schema struct {
	columns map[string]ColumnRule
}

// rawEntry mirrors the wire shape of one schema entry before validation:
// {"dtype": "...", "dtype_collision_strategy": "...", "sub_schema": {...}}.
type rawEntry struct {
	DType              string              `json:"dtype"`
	CollisionStrategy  string              `json:"dtype_collision_strategy"`
	SubSchema          map[string]rawEntry `json:"sub_schema"`
}

// Parse decodes a JSON-shaped schema blob and validates every dtype/strategy
// name with a decode-then-validate pass.
func Parse(text []byte) (*Schema, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(text, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidSchema, err)
	}
	return buildSchema(raw)
}

func buildSchema(raw map[string]rawEntry) (*Schema, error) {
	cols := make(map[string]ColumnRule, len(raw))
	for name, entry := range raw {
		rule, err := buildRule(entry)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		cols[name] = rule
	}
	return &Schema{columns: cols}, nil
}

func buildRule(entry rawEntry) (ColumnRule, error) {
	tag, err := value.ParseTag(entry.DType)
	if err != nil {
		return ColumnRule{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	strat, err := ParseStrategy(entry.CollisionStrategy)
	if err != nil {
		return ColumnRule{}, err
	}
	rule := ColumnRule{DType: tag, Strategy: strat}
	if len(entry.SubSchema) > 0 {
		sub, err := buildSchema(entry.SubSchema)
		if err != nil {
			return ColumnRule{}, err
		}
		rule.SubSchema = sub
	}
	return rule, nil
}

// ExpectedType returns the declared type for col and whether col has a
// schema entry at all. A missing entry is pass-through.
func (s *Schema) ExpectedType(col string) (value.TypeTag, bool) {
	if s == nil {
		return value.Unknown, false
	}
	rule, ok := s.columns[col]
	if !ok {
		return value.Unknown, false
	}
	return rule.DType, true
}

// StrategyFor returns the collision strategy declared for col.
func (s *Schema) StrategyFor(col string) (Strategy, bool) {
	if s == nil {
		return Ignore, false
	}
	rule, ok := s.columns[col]
	if !ok {
		return Ignore, false
	}
	return rule.Strategy, true
}

// Rule returns the full resolved rule for col.
func (s *Schema) Rule(col string) (ColumnRule, bool) {
	if s == nil {
		return ColumnRule{}, false
	}
	rule, ok := s.columns[col]
	return rule, ok
}

// Columns returns the set of column names this schema declares rules for.
func (s *Schema) Columns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.columns))
	for name := range s.columns {
		out = append(out, name)
	}
	return out
}
