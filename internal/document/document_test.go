package document

import (
	"testing"
)

// =============================================================================
// AssignClean Tests
// =============================================================================

func TestAssignClean_StripsReservedFields(t *testing.T) {
	src := Doc{
		"title":      "hello",
		"_id":        "forged",
		"_ownerId":   "forged",
		"_createdOn": 123,
		"_updatedOn": 456,
	}
	dst := AssignClean(Doc{}, src)

	if dst["title"] != "hello" {
		t.Errorf("title: got %v, want hello", dst["title"])
	}
	for _, field := range []string{"_id", "_ownerId", "_createdOn", "_updatedOn"} {
		if _, ok := dst[field]; ok {
			t.Errorf("reserved field %s should have been stripped", field)
		}
	}
}

func TestAssignClean_DeepCopiesNestedValues(t *testing.T) {
	nested := map[string]any{"inner": "original"}
	src := Doc{"nested": nested}
	dst := AssignClean(Doc{}, src)

	nested["inner"] = "mutated"
	got := dst["nested"].(map[string]any)["inner"]
	if got != "original" {
		t.Errorf("nested value aliased: got %v, want original", got)
	}
}

func TestPreserveSystemFields_CarriesOverExistingValues(t *testing.T) {
	existing := Doc{
		"_ownerId":   "owner-1",
		"_createdOn": float64(100),
		"title":      "old",
	}
	replacement := Doc{"title": "new"}
	PreserveSystemFields(replacement, existing)

	if replacement["_ownerId"] != "owner-1" {
		t.Errorf("_ownerId: got %v, want owner-1", replacement["_ownerId"])
	}
	if replacement["_createdOn"] != float64(100) {
		t.Errorf("_createdOn: got %v, want 100", replacement["_createdOn"])
	}
	if replacement["title"] != "new" {
		t.Errorf("title: got %v, want new", replacement["title"])
	}
	if _, ok := replacement["_updatedOn"]; ok {
		t.Error("_updatedOn should not be invented by PreserveSystemFields")
	}
}

// =============================================================================
// Comparison Tests
// =============================================================================

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"number and numeric string", float64(5), "5", true},
		{"int and float", 5, float64(5), true},
		{"bool and string", true, "true", true},
		{"nil and nil", nil, nil, true},
		{"nil and value", nil, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooseEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("LooseEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"numbers ascending", float64(1), float64(2), -1},
		{"numbers equal", float64(3), float64(3), 0},
		{"numbers descending", float64(9), float64(2), 1},
		{"mixed numeric types", 2, float64(10), -1},
		{"strings lexicographic", "apple", "banana", -1},
		{"number vs string falls back to text", float64(10), "9", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	falsy := []any{nil, false, "", float64(0), 0}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%v) = true, want false", v)
		}
	}
	truthy := []any{true, "x", float64(1), Doc{}, []any{}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%v) = false, want true", v)
		}
	}
}

func TestDeepCopy_Independent(t *testing.T) {
	original := Doc{
		"list": []any{map[string]any{"k": "v"}},
	}
	copied := original.DeepCopy()

	copied["list"].([]any)[0].(map[string]any)["k"] = "changed"
	if original["list"].([]any)[0].(map[string]any)["k"] != "v" {
		t.Error("DeepCopy aliased a nested slice element")
	}
}
