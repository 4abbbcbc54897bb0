package engine

import (
	"fmt"
	"math/big"

	"go.starlark.net/syntax"

	"github.com/roach88/attest/internal/script"
)

// MetaVar is the global a script assigns to declare its directives.
const MetaVar = "__meta__"

// collectMetadata reads the literal dictionary assigned to __meta__.
// Returns nil when the file has no such assignment. A later assignment
// replaces an earlier one, matching what execution would bind.
func collectMetadata(f *syntax.File) (*script.Metadata, error) {
	var meta *script.Metadata
	for _, stmt := range f.Stmts {
		assign, ok := stmt.(*syntax.AssignStmt)
		if !ok || assign.Op != syntax.EQ {
			continue
		}
		id, ok := assign.LHS.(*syntax.Ident)
		if !ok || id.Name != MetaVar {
			continue
		}

		dict, ok := unparen(assign.RHS).(*syntax.DictExpr)
		if !ok {
			return nil, metaError(assign.RHS, "%s must be a dictionary literal", MetaVar)
		}

		m := script.NewMetadata()
		for _, item := range dict.List {
			entry := item.(*syntax.DictEntry)
			key, err := literalValue(entry.Key)
			if err != nil {
				return nil, err
			}
			name, ok := key.(string)
			if !ok {
				return nil, metaError(entry.Key, "%s keys must be strings", MetaVar)
			}
			value, err := literalValue(entry.Value)
			if err != nil {
				return nil, err
			}
			m.Set(name, value)
		}
		meta = m
	}
	return meta, nil
}

// literalValue evaluates a constant expression to a plain Go value.
func literalValue(e syntax.Expr) (any, error) {
	switch x := unparen(e).(type) {
	case *syntax.Literal:
		switch v := x.Value.(type) {
		case string:
			return v, nil
		case int64:
			return v, nil
		case *big.Int:
			if v.IsInt64() {
				return v.Int64(), nil
			}
			return nil, metaError(x, "integer %s is out of range", v)
		default:
			return nil, metaError(x, "unsupported literal %s", x.Raw)
		}
	case *syntax.Ident:
		switch x.Name {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		}
		return nil, metaError(x, "%s must be a literal, found name %q", MetaVar, x.Name)
	case *syntax.UnaryExpr:
		if x.Op == syntax.MINUS {
			v, err := literalValue(x.X)
			if err != nil {
				return nil, err
			}
			if n, ok := v.(int64); ok {
				return -n, nil
			}
		}
		return nil, metaError(x, "%s must be a literal", MetaVar)
	case *syntax.ListExpr:
		return literalList(x.List)
	case *syntax.TupleExpr:
		return literalList(x.List)
	case *syntax.DictExpr:
		out := make(map[string]any, len(x.List))
		for _, item := range x.List {
			entry := item.(*syntax.DictEntry)
			key, err := literalValue(entry.Key)
			if err != nil {
				return nil, err
			}
			name, ok := key.(string)
			if !ok {
				return nil, metaError(entry.Key, "nested dictionary keys must be strings")
			}
			if out[name], err = literalValue(entry.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, metaError(e, "%s must be a literal", MetaVar)
	}
}

func literalList(elems []syntax.Expr) ([]any, error) {
	out := make([]any, len(elems))
	for i, elem := range elems {
		v, err := literalValue(elem)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func unparen(e syntax.Expr) syntax.Expr {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

func metaError(node syntax.Node, format string, args ...any) *script.Error {
	start, _ := node.Span()
	msg := fmt.Sprintf(format, args...)
	return script.NewError(script.KindParse, msg, fmt.Sprintf("%s: %s", start, msg), nil)
}
