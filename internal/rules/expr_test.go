package rules

import (
	"testing"

	"docbay/internal/document"
	"docbay/internal/services"
)

func evalExpr(t *testing.T, src string, env *Env) bool {
	t.Helper()
	expr, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", src, err)
	}
	got, err := expr.Eval(env)
	if err != nil {
		t.Fatalf("Eval(%q) failed: %v", src, err)
	}
	return got
}

// =============================================================================
// Expression Evaluation Tests
// =============================================================================

func TestExpr_Literals(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"null", false},
		{"undefined", false},
		{"0", false},
		{"1", true},
		{`""`, false},
		{`"x"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalExpr(t, tt.src, &Env{}); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpr_PathAccess(t *testing.T) {
	env := &Env{
		User: document.Doc{"_id": "u1", "profile": map[string]any{"admin": true}},
		Data: document.Doc{"_ownerId": "u1"},
	}

	tests := []struct {
		src  string
		want bool
	}{
		{`user._id == "u1"`, true},
		{`user._id == "u2"`, false},
		{`user.profile.admin`, true},
		{`user.missing.deep`, false}, // missing path resolves to nil
		{`user._id == data._ownerId`, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalExpr(t, tt.src, env); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpr_AnonymousUserIsFalsy(t *testing.T) {
	env := &Env{User: nil}
	if evalExpr(t, "user", env) {
		t.Error("nil user should be falsy")
	}
	if evalExpr(t, `user._id == "u1"`, env) {
		t.Error("path through nil user should not match")
	}
}

func TestExpr_BooleanOperators(t *testing.T) {
	env := &Env{User: document.Doc{"_id": "u1"}}

	tests := []struct {
		src  string
		want bool
	}{
		{`user && true`, true},
		{`user && false`, false},
		{`false || user`, true},
		{`!user`, false},
		{`!(user._id == "u2")`, true},
		{`user._id == "u1" && user._id != "u2"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalExpr(t, tt.src, env); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpr_Relational(t *testing.T) {
	env := &Env{Data: document.Doc{"qty": float64(5)}}

	if !evalExpr(t, "data.qty > 3", env) {
		t.Error("5 > 3 should hold")
	}
	if evalExpr(t, "data.qty >= 6", env) {
		t.Error("5 >= 6 should not hold")
	}
}

func TestExpr_IsOwner(t *testing.T) {
	env := &Env{
		User: document.Doc{"_id": "u1"},
		Data: document.Doc{"_ownerId": "u1"},
	}
	if !evalExpr(t, "isOwner(user, data)", env) {
		t.Error("owner should match")
	}

	env.Data = document.Doc{"_ownerId": "someone-else"}
	if evalExpr(t, "isOwner(user, data)", env) {
		t.Error("non-owner should not match")
	}

	env.User = nil
	if evalExpr(t, "isOwner(user, data)", env) {
		t.Error("anonymous is never owner")
	}
}

func TestExpr_GetBuiltin(t *testing.T) {
	env := &Env{
		User: document.Doc{"_id": "u1"},
		Data: document.Doc{"teamId": "t1"},
		Get: func(collection, id string) (document.Doc, error) {
			if collection == "teams" && id == "t1" {
				return document.Doc{"_ownerId": "u1"}, nil
			}
			return nil, services.ErrRecordNotFoundWithID(id)
		},
	}

	if !evalExpr(t, `isOwner(user, get("teams", data.teamId))`, env) {
		t.Error("user owns the related team, rule should pass")
	}
}

// =============================================================================
// Compile Error Tests
// =============================================================================

func TestCompile_Rejects(t *testing.T) {
	srcs := []string{
		``,
		`user._id =`,
		`newData.teamId = data.teamId`, // assignment is not an expression
		`delete(data)`,
		`user &&`,
		`(user`,
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			if _, err := Compile(src); err == nil {
				t.Errorf("Compile(%q) should fail", src)
			}
		})
	}
}
