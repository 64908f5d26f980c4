package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"docbay/internal/document"
)

// The original service evaluated rule strings as live code with ambient
// variables. Here they compile once at rule-load time into a closed
// expression AST: variable references (user, data, newData), dotted field
// access, literals, comparison and boolean operators, and the two builtin
// calls isOwner(user, x) and get(collection, id). Nothing else executes.

// Env supplies the variables and the record getter for one evaluation.
type Env struct {
	User    document.Doc
	Data    document.Doc
	NewData document.Doc

	// Get resolves get(collection, id) calls against the public store.
	Get func(collection, id string) (document.Doc, error)
}

func (e *Env) variable(name string) (any, bool) {
	switch name {
	case "user":
		return docOrNil(e.User), true
	case "data":
		return docOrNil(e.Data), true
	case "newData":
		return docOrNil(e.NewData), true
	}
	return nil, false
}

// docOrNil keeps a typed-nil Doc from masquerading as a non-nil any.
func docOrNil(d document.Doc) any {
	if d == nil {
		return nil
	}
	return d
}

// Expr is a compiled rule expression.
type Expr struct {
	root node
	src  string
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.src }

// Eval evaluates the expression and coerces the result to a boolean using
// the original truthiness rules.
func (e *Expr) Eval(env *Env) (bool, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return false, err
	}
	return document.Truthy(v), nil
}

// Compile parses an expression string into an AST. Compilation failures are
// reported once at rule-load time, not per request.
func Compile(src string) (*Expr, error) {
	p := &parser{tokens: lex(src)}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", src, err)
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("rule %q: unexpected %q", src, p.peek().text)
	}
	if err := validate(root); err != nil {
		return nil, fmt.Errorf("rule %q: %w", src, err)
	}
	return &Expr{root: root, src: src}, nil
}

// validate walks the AST so unknown variables and functions are caught at
// rule-load time instead of failing every request.
func validate(n node) error {
	switch v := n.(type) {
	case pathNode:
		switch v.parts[0] {
		case "user", "data", "newData":
			return nil
		}
		return fmt.Errorf("unknown variable %q", v.parts[0])
	case notNode:
		return validate(v.operand)
	case boolNode:
		if err := validate(v.left); err != nil {
			return err
		}
		return validate(v.right)
	case compareNode:
		if err := validate(v.left); err != nil {
			return err
		}
		return validate(v.right)
	case callNode:
		if v.name != "isOwner" && v.name != "get" {
			return fmt.Errorf("unknown function %q", v.name)
		}
		if len(v.args) != 2 {
			return fmt.Errorf("%s expects 2 arguments, got %d", v.name, len(v.args))
		}
		for _, arg := range v.args {
			if err := validate(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================================
// AST nodes
// ============================================================================

type node interface {
	eval(env *Env) (any, error)
}

type literalNode struct{ value any }

func (n literalNode) eval(*Env) (any, error) { return n.value, nil }

type pathNode struct{ parts []string }

func (n pathNode) eval(env *Env) (any, error) {
	current, ok := env.variable(n.parts[0])
	if !ok {
		return nil, fmt.Errorf("unknown variable %q", n.parts[0])
	}
	for _, part := range n.parts[1:] {
		obj, ok := current.(document.Doc)
		if !ok {
			if m, isMap := current.(map[string]any); isMap {
				obj = document.Doc(m)
			} else {
				return nil, nil
			}
		}
		current = obj[part]
	}
	return current, nil
}

type notNode struct{ operand node }

func (n notNode) eval(env *Env) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}
	return !document.Truthy(v), nil
}

type boolNode struct {
	op          string // "&&" or "||"
	left, right node
}

func (n boolNode) eval(env *Env) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	if n.op == "&&" && !document.Truthy(left) {
		return false, nil
	}
	if n.op == "||" && document.Truthy(left) {
		return true, nil
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}
	return document.Truthy(right), nil
}

type compareNode struct {
	op          string
	left, right node
}

func (n compareNode) eval(env *Env) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "==":
		return document.LooseEqual(left, right), nil
	case "!=":
		return !document.LooseEqual(left, right), nil
	}
	cmp := document.Compare(left, right)
	switch n.op {
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

type callNode struct {
	name string
	args []node
}

func (n callNode) eval(env *Env) (any, error) {
	args := make([]any, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch n.name {
	case "isOwner":
		if len(args) != 2 {
			return nil, fmt.Errorf("isOwner expects 2 arguments, got %d", len(args))
		}
		return evalIsOwner(args[0], args[1]), nil
	case "get":
		if len(args) != 2 {
			return nil, fmt.Errorf("get expects 2 arguments, got %d", len(args))
		}
		if env.Get == nil {
			return nil, fmt.Errorf("get is not available in this context")
		}
		collection := document.Stringify(args[0])
		id := document.Stringify(args[1])
		return env.Get(collection, id)
	}
	return nil, fmt.Errorf("unknown function %q", n.name)
}

// evalIsOwner checks principal._id == object._ownerId.
func evalIsOwner(user, object any) bool {
	userDoc, ok := asDoc(user)
	if !ok {
		return false
	}
	objDoc, ok := asDoc(object)
	if !ok {
		return false
	}
	return document.LooseEqual(userDoc["_id"], objDoc["_ownerId"])
}

func asDoc(v any) (document.Doc, bool) {
	switch d := v.(type) {
	case document.Doc:
		return d, d != nil
	case map[string]any:
		return document.Doc(d), d != nil
	}
	return nil, false
}

// ============================================================================
// Lexer
// ============================================================================

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenString
	tokenOp
	tokenPunct
	tokenEOF
	tokenInvalid
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) []token {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				tokens = append(tokens, token{tokenInvalid, src[i:]})
				return tokens
			}
			tokens = append(tokens, token{tokenString, src[i+1 : j]})
			i = j + 1
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokenNumber, src[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			tokens = append(tokens, token{tokenIdent, src[i:j]})
			i = j
		default:
			matched := false
			for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!"} {
				if strings.HasPrefix(src[i:], op) {
					tokens = append(tokens, token{tokenOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			switch c {
			case '(', ')', ',', '.':
				tokens = append(tokens, token{tokenPunct, string(c)})
				i++
			default:
				tokens = append(tokens, token{tokenInvalid, string(c)})
				return tokens
			}
		}
	}
	tokens = append(tokens, token{tokenEOF, ""})
	return tokens
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || unicode.IsDigit(rune(c))
}

// ============================================================================
// Parser
// ============================================================================

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEnd() bool { return p.peek().kind == tokenEOF }

func (p *parser) acceptOp(op string) bool {
	t := p.peek()
	if t.kind == tokenOp && t.text == op {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptPunct(punct string) bool {
	t := p.peek()
	if t.kind == tokenPunct && t.text == punct {
		p.next()
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = boolNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = boolNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.acceptOp(op) {
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return compareNode{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.acceptOp("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokenNumber:
		p.next()
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return literalNode{value: n}, nil
	case tokenString:
		p.next()
		return literalNode{value: t.text}, nil
	case tokenIdent:
		return p.parseIdent()
	case tokenPunct:
		if t.text == "(" {
			p.next()
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if !p.acceptPunct(")") {
				return nil, fmt.Errorf("missing closing parenthesis")
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

func (p *parser) parseIdent() (node, error) {
	t := p.next()
	switch t.text {
	case "true":
		return literalNode{value: true}, nil
	case "false":
		return literalNode{value: false}, nil
	case "null", "undefined":
		return literalNode{value: nil}, nil
	}

	// Function call
	if p.acceptPunct("(") {
		var args []node
		if !p.acceptPunct(")") {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.acceptPunct(")") {
					break
				}
				if !p.acceptPunct(",") {
					return nil, fmt.Errorf("expected , or ) in argument list")
				}
			}
		}
		return callNode{name: t.text, args: args}, nil
	}

	// Dotted path
	parts := []string{t.text}
	for p.acceptPunct(".") {
		field := p.next()
		if field.kind != tokenIdent {
			return nil, fmt.Errorf("expected field name after '.'")
		}
		parts = append(parts, field.text)
	}
	return pathNode{parts: parts}, nil
}
