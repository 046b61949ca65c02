// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/jllopis/bringacrew/pkg/capability"
)

// maxCalcSteps bounds the work a single expression may do.
const maxCalcSteps = 10_000

// Calculator returns the calculate capability. Expressions are parsed as
// Starlark and only numeric literals, parentheses, unary signs and the
// arithmetic operators are accepted; anything else is reported back as an
// observation so the oracle can rephrase.
func Calculator() capability.Capability {
	return capability.NewFunc("calculate",
		"Calculator style math on numbers only, e.g. 4 * 7 / 3. Supports + - * / // % and parentheses.",
		func(ctx context.Context, argument string) (string, error) {
			v, err := Evaluate(argument)
			if err != nil {
				return "error: " + err.Error(), nil
			}
			return v, nil
		})
}

// Evaluate computes an arithmetic expression and returns its printed value.
func Evaluate(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("empty expression")
	}

	opts := &syntax.FileOptions{}
	parsed, err := opts.ParseExpr("calculate", expr, 0)
	if err != nil {
		return "", fmt.Errorf("cannot parse %q: %w", expr, err)
	}
	if err := checkArithmetic(parsed); err != nil {
		return "", err
	}

	thread := &starlark.Thread{Name: "calculate"}
	thread.SetMaxExecutionSteps(maxCalcSteps)
	v, err := starlark.EvalExprOptions(opts, thread, parsed, nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func checkArithmetic(expr syntax.Expr) error {
	var bad error
	syntax.Walk(expr, func(n syntax.Node) bool {
		if bad != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.Literal:
			if n.Token != syntax.INT && n.Token != syntax.FLOAT {
				bad = fmt.Errorf("only numbers are allowed, got %s", n.Raw)
			}
		case *syntax.ParenExpr:
		case *syntax.UnaryExpr:
			if n.Op != syntax.PLUS && n.Op != syntax.MINUS {
				bad = fmt.Errorf("operator %s is not allowed", n.Op)
			}
		case *syntax.BinaryExpr:
			switch n.Op {
			case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.SLASHSLASH, syntax.PERCENT:
			default:
				bad = fmt.Errorf("operator %s is not allowed", n.Op)
			}
		case nil:
		default:
			bad = fmt.Errorf("only arithmetic is allowed, got %T", n)
		}
		return bad == nil
	})
	return bad
}
