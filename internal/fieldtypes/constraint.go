package fieldtypes

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Constraint is a compiled CEL validation rule for list-like field values.
//
// Available variables:
//   - items: list<string> of item titles
//   - count: int, the number of items
//   - field: string, the field name
//
// Example: count <= 10 && items.all(i, size(i) > 0)
type Constraint struct {
	expression string
	program    cel.Program
}

// NewConstraint compiles a constraint expression. The expression must return a boolean.
func NewConstraint(expression string) (*Constraint, error) {
	env, err := cel.NewEnv(
		cel.Variable("items", cel.ListType(cel.StringType)),
		cel.Variable("count", cel.IntType),
		cel.Variable("field", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid constraint expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("constraint expression must return boolean, got: %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Constraint{expression: expression, program: program}, nil
}

// Expression returns the source expression
func (c *Constraint) Expression() string {
	return c.expression
}

// Check evaluates the constraint against the items of a field
func (c *Constraint) Check(field string, items []string) error {
	if items == nil {
		items = []string{}
	}

	result, _, err := c.program.Eval(map[string]interface{}{
		"items": items,
		"count": int64(len(items)),
		"field": field,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: failed to evaluate %q: %v", ErrConstraintViolation, field, c.expression, err)
	}

	ok, isBool := result.Value().(bool)
	if !isBool {
		return fmt.Errorf("%w: %s: constraint did not evaluate to boolean, got: %T",
			ErrConstraintViolation, field, result.Value())
	}
	if !ok {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrConstraintViolation, field, c.expression)
	}
	return nil
}
