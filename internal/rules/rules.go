// Package rules implements the declarative access-rule engine. Rules are
// declared per collection (with a * wildcard default), per record ID, and
// per field; a rule value is a boolean literal, a role list, or an
// expression string compiled into a closed AST at load time.
package rules

import (
	"net/http"

	"docbay/internal/document"
	"docbay/internal/logger"
	"docbay/internal/services"
)

// Action identifies the rule slot derived from the HTTP verb.
type Action string

const (
	ActionCreate Action = ".create"
	ActionRead   Action = ".read"
	ActionUpdate Action = ".update"
	ActionDelete Action = ".delete"
)

// ActionForMethod maps an HTTP verb to its rule action.
func ActionForMethod(method string) Action {
	switch method {
	case http.MethodGet:
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	}
	return ActionRead
}

// Role names usable in role-list rules.
const (
	RoleGuest = "Guest"
	RoleUser  = "User"
	RoleOwner = "Owner"
)

type ruleKind int

const (
	kindBool ruleKind = iota
	kindRoles
	kindExpr
)

// Rule is one compiled rule value.
type Rule struct {
	kind    ruleKind
	boolean bool
	roles   []string
	expr    *Expr
}

// empty reports whether the rule cannot override a less specific layer:
// empty role lists and blank expressions keep the previous rule in force.
func (r *Rule) empty() bool {
	switch r.kind {
	case kindRoles:
		return len(r.roles) == 0
	case kindExpr:
		return r.expr == nil && !r.boolean
	}
	return false
}

type actionRules map[Action]*Rule

// fieldRules maps field name → action → rule.
type fieldRules map[string]actionRules

type recordOverride struct {
	actions actionRules
	fields  fieldRules
}

type collectionRules struct {
	actions actionRules
	fields  fieldRules
	records map[string]*recordOverride
}

// RuleSet is the compiled rule table for the whole service.
type RuleSet struct {
	wildcard    actionRules
	collections map[string]*collectionRules
}

// DefaultWildcard is the built-in policy applied when the configuration
// does not supply a * entry: anyone may read, authenticated users may
// create, and only owners may update or delete.
func DefaultWildcard() map[string]any {
	return map[string]any{
		string(ActionCreate): []any{RoleUser},
		string(ActionUpdate): []any{RoleOwner},
		string(ActionDelete): []any{RoleOwner},
	}
}

// NewRuleSet compiles a raw rule mapping (parsed YAML/JSON). Expressions
// that fail to compile are logged and degrade to deny.
func NewRuleSet(raw map[string]any, log *logger.Logger) *RuleSet {
	rs := &RuleSet{collections: make(map[string]*collectionRules)}

	wildcardRaw, ok := raw["*"].(map[string]any)
	if !ok {
		wildcardRaw = DefaultWildcard()
	}
	rs.wildcard = compileActions(wildcardRaw, log)

	for name, value := range raw {
		if name == "*" {
			continue
		}
		collRaw, ok := value.(map[string]any)
		if !ok {
			log.Warn("Rules: ignoring malformed rules for collection %q", name)
			continue
		}
		rs.collections[name] = compileCollection(collRaw, log)
	}
	return rs
}

func compileCollection(raw map[string]any, log *logger.Logger) *collectionRules {
	cr := &collectionRules{
		actions: compileActions(raw, log),
		records: make(map[string]*recordOverride),
	}
	for key, value := range raw {
		if len(key) > 0 && key[0] == '.' {
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			continue
		}
		if key == "*" {
			cr.fields = compileFields(sub, log)
			continue
		}
		// Any other non-dot key is a record-ID override. Its dot keys are
		// action rules; its remaining keys are field rules for that record.
		cr.records[key] = &recordOverride{
			actions: compileActions(sub, log),
			fields:  compileFields(sub, log),
		}
	}
	return cr
}

// compileActions picks the dot-prefixed action keys out of a rule object.
func compileActions(raw map[string]any, log *logger.Logger) actionRules {
	out := make(actionRules)
	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		if value, ok := raw[string(action)]; ok {
			out[action] = compileRule(value, log)
		}
	}
	return out
}

// compileFields picks the non-dot keys whose values are action-keyed
// rule objects.
func compileFields(raw map[string]any, log *logger.Logger) fieldRules {
	out := make(fieldRules)
	for field, value := range raw {
		if len(field) > 0 && field[0] == '.' {
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			continue
		}
		actions := compileActions(sub, log)
		if len(actions) > 0 {
			out[field] = actions
		}
	}
	return out
}

func compileRule(value any, log *logger.Logger) *Rule {
	switch v := value.(type) {
	case bool:
		return &Rule{kind: kindBool, boolean: v}
	case []any:
		roles := make([]string, 0, len(v))
		for _, role := range v {
			roles = append(roles, document.Stringify(role))
		}
		return &Rule{kind: kindRoles, roles: roles}
	case string:
		if v == "" {
			return &Rule{kind: kindExpr}
		}
		expr, err := Compile(v)
		if err != nil {
			log.Warn("Rules: %v, rule degrades to deny", err)
			return &Rule{kind: kindBool, boolean: false}
		}
		return &Rule{kind: kindExpr, expr: expr}
	default:
		log.Warn("Rules: unsupported rule value %v, rule degrades to deny", value)
		return &Rule{kind: kindBool, boolean: false}
	}
}

// FieldRule pairs a field name with the rule governing it for one action.
type FieldRule struct {
	Field string
	Rule  *Rule
}

// resolve layers wildcard default → collection action rule → record-ID
// override, later layers replacing earlier ones (empty rules keep the
// previous layer in force). Field rules come from the collection's *
// block, replaced wholesale by record-level field rules when present.
func (rs *RuleSet) resolve(action Action, collection, recordID string) (*Rule, []FieldRule) {
	current := rs.wildcard[action]
	var fields []FieldRule

	cr, ok := rs.collections[collection]
	if !ok {
		return current, fields
	}

	if rule, ok := cr.actions[action]; ok && !rule.empty() {
		current = rule
	}
	fields = fieldRulesFor(cr.fields, action)

	if recordID != "" {
		if ro, ok := cr.records[recordID]; ok {
			if rule, ok := ro.actions[action]; ok && !rule.empty() {
				current = rule
			}
			if recordFields := fieldRulesFor(ro.fields, action); len(recordFields) > 0 {
				fields = recordFields
			}
		}
	}
	return current, fields
}

func fieldRulesFor(fields fieldRules, action Action) []FieldRule {
	var out []FieldRule
	for field, actions := range fields {
		if rule, ok := actions[action]; ok {
			out = append(out, FieldRule{Field: field, Rule: rule})
		}
	}
	return out
}

// ============================================================================
// Checker
// ============================================================================

// Getter resolves get(collection, id) calls inside rule expressions.
type Getter func(collection, id string) (document.Doc, error)

// Checker evaluates the compiled rule set against individual requests.
// It never mutates stored data, only the request's in-flight documents.
type Checker struct {
	rules  *RuleSet
	getter Getter
	logger *logger.Logger
}

// NewChecker creates a rule checker. The getter reads the public store.
func NewChecker(rs *RuleSet, getter Getter, log *logger.Logger) *Checker {
	return &Checker{rules: rs, getter: getter, logger: log}
}

// Request describes one access decision.
type Request struct {
	Action     Action
	Collection string
	User       document.Doc // nil when anonymous
	Data       document.Doc // existing record for read/update/delete
	NewData    document.Doc // incoming document for create/update
	Admin      bool         // admin override header present
}

// CanAccess resolves the effective rule and applies it. A denied top-level
// rule without the admin override fails with a credential error; a missing
// principal where one is strictly required fails with an authorization
// error. Field rules then redact failing fields in place: incoming fields
// for create/update, outgoing fields for read.
func (c *Checker) CanAccess(req *Request) error {
	recordID := ""
	if req.Data != nil {
		recordID = document.Stringify(req.Data["_id"])
	}
	rule, fields := c.rules.resolve(req.Action, req.Collection, recordID)

	allowed, err := c.evalTopRule(rule, req)
	if err != nil {
		return err
	}
	if !allowed && !req.Admin {
		return services.ErrRuleDenied
	}

	return c.applyFieldRules(fields, req)
}

// RedactList applies the read gate once for a whole result set, then runs
// field redaction per record so record-ID overrides take effect.
func (c *Checker) RedactList(user document.Doc, collection string, records []document.Doc, admin bool) error {
	gate := &Request{Action: ActionRead, Collection: collection, User: user, Admin: admin}
	rule, _ := c.rules.resolve(ActionRead, collection, "")
	allowed, err := c.evalTopRule(rule, gate)
	if err != nil {
		return err
	}
	if !allowed && !admin {
		return services.ErrRuleDenied
	}

	for _, rec := range records {
		recordID := document.Stringify(rec["_id"])
		_, fields := c.rules.resolve(ActionRead, collection, recordID)
		req := &Request{Action: ActionRead, Collection: collection, User: user, Data: rec, Admin: admin}
		if err := c.applyFieldRules(fields, req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) evalTopRule(rule *Rule, req *Request) (bool, error) {
	if rule == nil {
		return true, nil
	}
	switch rule.kind {
	case kindBool:
		return rule.boolean, nil
	case kindRoles:
		return c.checkRoles(rule.roles, req)
	case kindExpr:
		if rule.expr == nil {
			return true, nil
		}
		ok, err := rule.expr.Eval(c.env(req))
		if err != nil {
			return false, services.WrapInternalError(err)
		}
		return ok, nil
	}
	return false, nil
}

// checkRoles follows the original role ladder: Guest always passes; with
// no principal and no admin override any further check is an authorization
// failure; User passes for any principal; Owner requires ownership.
func (c *Checker) checkRoles(roles []string, req *Request) (bool, error) {
	if containsRole(roles, RoleGuest) {
		return true, nil
	}
	if req.User == nil && !req.Admin {
		return false, services.ErrAuthRequired
	}
	if containsRole(roles, RoleUser) {
		return true, nil
	}
	if req.User != nil && containsRole(roles, RoleOwner) {
		if req.Data == nil {
			return false, nil
		}
		return document.LooseEqual(req.User["_id"], req.Data["_ownerId"]), nil
	}
	return false, nil
}

// applyFieldRules deletes each field whose rule fails. Field rules are a
// redaction mechanism, not a hard gate, and the admin override does not
// apply to them.
func (c *Checker) applyFieldRules(fields []FieldRule, req *Request) error {
	for _, fr := range fields {
		pass := true
		switch fr.Rule.kind {
		case kindBool:
			pass = fr.Rule.boolean
		case kindRoles:
			// Role lists are not meaningful as field rules; a non-empty
			// list counts as pass, matching the original's coercion.
			pass = len(fr.Rule.roles) > 0
		case kindExpr:
			if fr.Rule.expr != nil {
				ok, err := fr.Rule.expr.Eval(c.env(req))
				if err != nil {
					return services.WrapInternalError(err)
				}
				pass = ok
			}
		}
		if pass {
			continue
		}
		switch req.Action {
		case ActionCreate, ActionUpdate:
			if req.NewData != nil {
				delete(req.NewData, fr.Field)
			}
		case ActionRead:
			if req.Data != nil {
				delete(req.Data, fr.Field)
			}
		}
	}
	return nil
}

func (c *Checker) env(req *Request) *Env {
	return &Env{User: req.User, Data: req.Data, NewData: req.NewData, Get: c.getter}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
