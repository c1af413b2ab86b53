// Package expr evaluates the predicates of Condition and While nodes.
//
// Predicates are HCL native-syntax expressions over a single variable, input,
// holding the upstream value of the node, e.g.
//
//	input.score > 0.5 && contains(keys(input), "title")
//	length(input) >= 3
//
// The grammar is closed: only the functions listed in Functions can be
// called and input is the only variable, so evaluation has no side effects.
package expr

import (
	"encoding/json"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// InputVariable is the name the upstream value is bound to.
const InputVariable = "input"

// Functions callable from a predicate.
var Functions = map[string]function.Function{
	"length":    stdlib.LengthFunc,
	"strlen":    stdlib.StrlenFunc,
	"upper":     stdlib.UpperFunc,
	"lower":     stdlib.LowerFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"contains":  stdlib.ContainsFunc,
	"keys":      stdlib.KeysFunc,
	"regex":     stdlib.RegexFunc,
	"can":       tryfunc.CanFunc,
}

type Expression struct {
	source string
	expr   hclsyntax.Expression
}

// Compile parses source and checks that it only refers to input.
func Compile(source string) (*Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(source), "condition", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, errors.BadRequestf("invalid expression %q: %s", source, diags.Error())
	}
	for _, traversal := range expr.Variables() {
		if root := traversal.RootName(); root != InputVariable {
			return nil, errors.BadRequestf("unknown variable %q in expression %q", root, source)
		}
	}
	return &Expression{source: source, expr: expr}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression against input and coerces the result to a
// boolean.
func (e *Expression) Eval(input any) (result bool, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			result, retErr = false, errors.Errorf("panic evaluating %q: %v", e.source, r)
		}
	}()

	val, err := ToValue(input)
	if err != nil {
		return false, errors.Trace(err)
	}
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{InputVariable: val},
		Functions: Functions,
	}
	out, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return false, errors.Errorf("evaluate %q: %s", e.source, diags.Error())
	}
	return Truthy(out), nil
}

// Evaluate compiles and evaluates source. Any failure yields false.
func Evaluate(source string, input any) bool {
	e, err := Compile(source)
	if err != nil {
		log.Debugf("condition compile failed: %v", err)
		return false
	}
	ok, err := e.Eval(input)
	if err != nil {
		log.Debugf("condition evaluation failed: %v", err)
		return false
	}
	return ok
}

// ToValue converts a JSON-like Go value into a cty.Value.
func ToValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, errors.Annotatef(err, "input is not JSON-like")
	}
	ty, err := ctyjson.ImpliedType(b)
	if err != nil {
		return cty.NilVal, errors.Annotatef(err, "infer type")
	}
	val, err := ctyjson.Unmarshal(b, ty)
	if err != nil {
		return cty.NilVal, errors.Annotatef(err, "convert input")
	}
	return val, nil
}

// Truthy maps a value onto a boolean: null and unknown are false, numbers are
// true when non-zero and strings when non-empty, collections are always true.
func Truthy(v cty.Value) bool {
	v, _ = v.Unmark()
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	case cty.String:
		return v.AsString() != ""
	default:
		return true
	}
}
