package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codegraph/retrieval/internal/rerrors"
)

// Binding maps pattern variable names to their bound value for one
// candidate row: a *Node, a *Relationship, or (for CREATE, via RETURN)
// a scalar.
type Binding map[string]any

type evaluator struct {
	store *Store
}

func (ev *evaluator) exec(stmt *Statement) ([]Row, error) {
	switch stmt.Kind {
	case StmtCreate:
		return ev.execCreate(stmt)
	case StmtMatch:
		return ev.execMatch(stmt)
	case StmtCall:
		return ev.execCall(stmt)
	default:
		return nil, rerrors.QueryEval("unknown statement kind")
	}
}

// --- CREATE ---

func (ev *evaluator) execCreate(stmt *Statement) ([]Row, error) {
	binding := Binding{}
	for _, pat := range stmt.Patterns {
		var prevNode *Node
		for i, np := range pat.Nodes {
			props, err := ev.evalPropMap(np.Props, binding)
			if err != nil {
				return nil, err
			}
			node := ev.store.createNode(np.Labels, props)
			binding[np.Var] = node

			if i > 0 {
				rp := pat.Rels[i-1]
				relProps, err := ev.evalPropMap(rp.Props, binding)
				if err != nil {
					return nil, err
				}
				rel := ev.store.createRelationship(prevNode.ID, node.ID, rp.Type, relProps)
				binding[rp.Var] = rel
			}
			prevNode = node
		}
	}

	if stmt.Return == nil {
		return nil, nil
	}
	row, err := ev.projectRow(stmt.Return, binding)
	if err != nil {
		return nil, err
	}
	return []Row{row}, nil
}

// --- MATCH ---

func (ev *evaluator) execMatch(stmt *Statement) ([]Row, error) {
	bindings := []Binding{{}}
	for _, pat := range stmt.Patterns {
		var err error
		bindings, err = ev.matchPattern(pat, bindings)
		if err != nil {
			return nil, err
		}
	}

	if stmt.Where != nil {
		filtered := bindings[:0:0]
		for _, b := range bindings {
			ok, err := ev.evalBool(stmt.Where, b)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, b)
			}
		}
		bindings = filtered
	}

	if stmt.Return == nil {
		return nil, nil
	}

	rows, err := ev.projectRows(stmt.Return, bindings)
	if err != nil {
		return nil, err
	}

	if stmt.Distinct {
		rows = distinctRows(rows)
	}
	if len(stmt.OrderBy) > 0 {
		sortRows(rows, stmt.OrderBy)
	}
	if stmt.Limit != nil && len(rows) > *stmt.Limit {
		rows = rows[:*stmt.Limit]
	}
	return rows, nil
}

func (ev *evaluator) matchPattern(pat Pattern, bindings []Binding) ([]Binding, error) {
	out, err := ev.expandNode(pat.Nodes[0], bindings)
	if err != nil {
		return nil, err
	}
	for i, rel := range pat.Rels {
		out, err = ev.expandRelAndNode(pat.Nodes[i].Var, rel, pat.Nodes[i+1], out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ev *evaluator) expandNode(np NodePattern, bindings []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range bindings {
		if existing, ok := b[np.Var]; ok {
			n, ok2 := existing.(*Node)
			if !ok2 {
				continue
			}
			match, err := ev.nodeMatches(n, np, b)
			if err != nil {
				return nil, err
			}
			if match {
				out = append(out, b)
			}
			continue
		}
		for _, n := range ev.store.nodes {
			match, err := ev.nodeMatches(n, np, b)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
			out = append(out, cloneBinding(b, np.Var, n))
		}
	}
	return out, nil
}

func (ev *evaluator) expandRelAndNode(fromVar string, rp RelPattern, np NodePattern, bindings []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range bindings {
		fromVal, ok := b[fromVar]
		fromNode, ok2 := fromVal.(*Node)
		if !ok || !ok2 {
			continue
		}
		for _, r := range ev.store.rels {
			if r.From != fromNode.ID {
				continue
			}
			relMatch, err := ev.relMatches(r, rp, b)
			if err != nil {
				return nil, err
			}
			if !relMatch {
				continue
			}
			toNode := ev.store.nodeByID(r.To)
			if toNode == nil {
				continue
			}
			nb := b
			if existing, ok := b[np.Var]; ok {
				existingNode, ok2 := existing.(*Node)
				if !ok2 || existingNode.ID != toNode.ID {
					continue
				}
			}
			nodeOK, err := ev.nodeMatches(toNode, np, b)
			if err != nil {
				return nil, err
			}
			if !nodeOK {
				continue
			}
			nb = cloneBinding(nb, np.Var, toNode)
			if rp.Var != "" {
				nb = cloneBinding(nb, rp.Var, r)
			}
			out = append(out, nb)
		}
	}
	return out, nil
}

func (ev *evaluator) nodeMatches(n *Node, np NodePattern, b Binding) (bool, error) {
	for _, l := range np.Labels {
		if !n.HasLabel(l) {
			return false, nil
		}
	}
	for k, expr := range np.Props {
		want, err := ev.eval(expr, b)
		if err != nil {
			return false, err
		}
		if !deepEqual(n.Properties[k], want) {
			return false, nil
		}
	}
	return true, nil
}

func (ev *evaluator) relMatches(r *Relationship, rp RelPattern, b Binding) (bool, error) {
	if rp.Type != "" && r.Type != rp.Type {
		return false, nil
	}
	for k, expr := range rp.Props {
		want, err := ev.eval(expr, b)
		if err != nil {
			return false, err
		}
		if !deepEqual(r.Properties[k], want) {
			return false, nil
		}
	}
	return true, nil
}

func cloneBinding(b Binding, key string, val any) Binding {
	nb := make(Binding, len(b)+1)
	for k, v := range b {
		nb[k] = v
	}
	nb[key] = val
	return nb
}

// --- CALL ---

func (ev *evaluator) execCall(stmt *Statement) ([]Row, error) {
	if stmt.Call.Name != "db.labels" {
		return nil, rerrors.QueryEval("unsupported procedure %q", stmt.Call.Name)
	}
	labelSet := map[string]struct{}{}
	for _, n := range ev.store.nodes {
		for l := range n.Labels {
			labelSet[l] = struct{}{}
		}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rows := make([]Row, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, Row{"label": l})
	}
	return rows, nil
}

// --- expression evaluation ---

func (ev *evaluator) eval(e Expr, b Binding) (any, error) {
	switch v := e.(type) {
	case Literal:
		return v.Value, nil
	case Variable:
		return b[v.Name], nil
	case PropertyRef:
		return propertyOf(b[v.Var], v.Prop), nil
	case BinaryExpr:
		return ev.evalBinary(v, b)
	case UnaryExpr:
		if v.Op == "NOT" {
			r, err := ev.evalBool(v.Expr, b)
			if err != nil {
				return nil, err
			}
			return !r, nil
		}
		return nil, rerrors.QueryEval("unsupported unary operator %q", v.Op)
	case StringTest:
		return ev.evalStringTest(v, b)
	case FuncCall:
		return ev.evalFuncSingle(v, b)
	case StarArg:
		return nil, rerrors.QueryEval("'*' is only valid as an argument to count()")
	default:
		return nil, rerrors.QueryEval("unsupported expression type %T", e)
	}
}

func (ev *evaluator) evalBool(e Expr, b Binding) (bool, error) {
	v, err := ev.eval(e, b)
	if err != nil {
		return false, err
	}
	bv, _ := v.(bool)
	return bv, nil
}

func (ev *evaluator) evalBinary(v BinaryExpr, b Binding) (any, error) {
	switch v.Op {
	case "AND":
		l, err := ev.evalBool(v.Left, b)
		if err != nil {
			return nil, err
		}
		if !l {
			return false, nil
		}
		return ev.evalBool(v.Right, b)
	case "OR":
		l, err := ev.evalBool(v.Left, b)
		if err != nil {
			return nil, err
		}
		if l {
			return true, nil
		}
		return ev.evalBool(v.Right, b)
	default:
		left, err := ev.eval(v.Left, b)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(v.Right, b)
		if err != nil {
			return nil, err
		}
		return compare(v.Op, left, right), nil
	}
}

func compare(op string, left, right any) bool {
	switch op {
	case "=":
		return deepEqual(left, right)
	case "<>":
		return !deepEqual(left, right)
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch op {
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
	}
	ls, lsok := left.(string)
	rs, rsok := right.(string)
	if lsok && rsok {
		switch op {
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		}
	}
	return false
}

func (ev *evaluator) evalStringTest(v StringTest, b Binding) (any, error) {
	left, err := ev.eval(v.Left, b)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(v.Right, b)
	if err != nil {
		return nil, err
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if !lok || !rok {
		return false, nil
	}
	switch v.Op {
	case "STARTS WITH":
		return strings.HasPrefix(ls, rs), nil
	case "ENDS WITH":
		return strings.HasSuffix(ls, rs), nil
	case "CONTAINS":
		return strings.Contains(ls, rs), nil
	default:
		return false, nil
	}
}

func (ev *evaluator) evalFuncSingle(fn FuncCall, b Binding) (any, error) {
	switch fn.Name {
	case "labels":
		if len(fn.Args) != 1 {
			return nil, rerrors.QueryEval("labels() takes exactly one argument")
		}
		val, err := ev.eval(fn.Args[0], b)
		if err != nil {
			return nil, err
		}
		if n, ok := val.(*Node); ok {
			return toAnySlice(n.SortedLabels()), nil
		}
		return []any{}, nil
	default:
		return nil, rerrors.QueryEval("unsupported function %q outside RETURN aggregation", fn.Name)
	}
}

func propertyOf(v any, prop string) any {
	switch n := v.(type) {
	case *Node:
		return n.Properties[prop]
	case *Relationship:
		return n.Properties[prop]
	default:
		return nil
	}
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func deepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := toFloat(b)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

func (ev *evaluator) evalPropMap(props map[string]Expr, b Binding) (map[string]any, error) {
	if len(props) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(props))
	for k, expr := range props {
		v, err := ev.eval(expr, b)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// --- projection ---

func isAggregate(fn FuncCall) bool {
	return fn.Name == "count" || fn.Name == "collect"
}

func (ev *evaluator) projectRows(ret *ReturnClause, bindings []Binding) ([]Row, error) {
	hasAgg := false
	for _, item := range ret.Items {
		if fn, ok := item.Expr.(FuncCall); ok && isAggregate(fn) {
			hasAgg = true
		}
	}
	if hasAgg {
		row, err := ev.projectAggregateRow(ret, bindings)
		if err != nil {
			return nil, err
		}
		return []Row{row}, nil
	}

	rows := make([]Row, 0, len(bindings))
	for _, b := range bindings {
		row, err := ev.projectRow(ret, b)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (ev *evaluator) projectRow(ret *ReturnClause, b Binding) (Row, error) {
	row := Row{}
	for _, item := range ret.Items {
		v, err := ev.eval(item.Expr, b)
		if err != nil {
			return nil, err
		}
		row[item.Alias] = v
	}
	return row, nil
}

func (ev *evaluator) projectAggregateRow(ret *ReturnClause, bindings []Binding) (Row, error) {
	row := Row{}
	for _, item := range ret.Items {
		fn, isFn := item.Expr.(FuncCall)
		if !isFn || !isAggregate(fn) {
			var first any
			if len(bindings) > 0 {
				v, err := ev.eval(item.Expr, bindings[0])
				if err != nil {
					return nil, err
				}
				first = v
			}
			row[item.Alias] = first
			continue
		}
		switch fn.Name {
		case "count":
			if len(fn.Args) == 1 {
				if _, isStar := fn.Args[0].(StarArg); isStar {
					row[item.Alias] = float64(len(bindings))
					continue
				}
			}
			if len(fn.Args) != 1 {
				return nil, rerrors.QueryEval("count() takes exactly one argument")
			}
			n := 0
			for _, b := range bindings {
				v, err := ev.eval(fn.Args[0], b)
				if err != nil {
					return nil, err
				}
				if v != nil {
					n++
				}
			}
			row[item.Alias] = float64(n)
		case "collect":
			if len(fn.Args) != 1 {
				return nil, rerrors.QueryEval("collect() takes exactly one argument")
			}
			vals := make([]any, 0, len(bindings))
			for _, b := range bindings {
				v, err := ev.eval(fn.Args[0], b)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			row[item.Alias] = vals
		}
	}
	return row, nil
}

// --- post-processing ---

func canonicalKey(row Row, keys []string) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(fmt.Sprintf("%v", row[k]))
		sb.WriteByte('|')
	}
	return sb.String()
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func distinctRows(rows []Row) []Row {
	seen := map[string]struct{}{}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		key := canonicalKey(r, sortedKeys(r))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func sortRows(rows []Row, keys []OrderKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := rows[i][k.Key], rows[j][k.Key]
			if deepEqual(a, b) {
				continue
			}
			if af, aok := toFloat(a); aok {
				if bf, bok := toFloat(b); bok {
					return af < bf
				}
			}
			as, asok := a.(string)
			bs, bsok := b.(string)
			if asok && bsok {
				return as < bs
			}
			return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
		}
		return false
	})
}
