// Package query parses and executes the query-string directives applied to
// collection reads: where, sortBy, offset, pageSize, distinct, count,
// select, load. The pipeline order is fixed and directives are independent
// of each other except for count, which short-circuits.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"docbay/internal/constants"
	"docbay/internal/document"
)

// Options holds the raw query directives for one request.
type Options struct {
	Where    string
	SortBy   string
	Offset   string
	PageSize string
	Distinct string
	Count    bool
	Select   string
	Load     string
}

// ParseOptions extracts the recognized directives from a URL query.
func ParseOptions(q url.Values) Options {
	return Options{
		Where:    q.Get(constants.ParamWhere),
		SortBy:   q.Get(constants.ParamSortBy),
		Offset:   q.Get(constants.ParamOffset),
		PageSize: q.Get(constants.ParamPageSize),
		Distinct: q.Get(constants.ParamDistinct),
		Count:    q.Has(constants.ParamCount),
		Select:   q.Get(constants.ParamSelect),
		Load:     q.Get(constants.ParamLoad),
	}
}

// Relator resolves a related record for load directives. Implementations
// route `users` lookups to the protected store.
type Relator interface {
	Relate(collection, id string) (document.Doc, error)
}

// Apply runs the pipeline over a result set. The where directive is NOT
// applied here; the caller filters via Filter first, because where replaces
// the get-by-id lookup rather than narrowing it. Returns either the shaped
// []document.Doc or, for count, the result length.
func Apply(records []document.Doc, opts Options, rel Relator) (any, error) {
	result := records

	if opts.SortBy != "" {
		result = applySort(result, opts.SortBy)
	}

	if opts.Offset != "" {
		offset := parseNonNegative(opts.Offset, 0)
		if offset > len(result) {
			offset = len(result)
		}
		result = result[offset:]
	}

	if opts.PageSize != "" {
		// Zero and unparseable values both fall back to the default.
		pageSize := parseNonNegative(opts.PageSize, constants.DefaultPageSize)
		if pageSize == 0 {
			pageSize = constants.DefaultPageSize
		}
		if pageSize < len(result) {
			result = result[:pageSize]
		}
	}

	if opts.Distinct != "" {
		result = applyDistinct(result, opts.Distinct)
	}

	if opts.Count {
		return len(result), nil
	}

	if opts.Select != "" {
		projected := make([]document.Doc, len(result))
		for i, rec := range result {
			projected[i] = project(rec, opts.Select)
		}
		result = projected
	}

	if opts.Load != "" {
		loaded, err := applyLoad(result, opts.Load, rel)
		if err != nil {
			return nil, err
		}
		result = loaded
	}

	return result, nil
}

// ShapeSingle applies the directives that operate on a single record
// (select and load) to a get-by-id result.
func ShapeSingle(rec document.Doc, opts Options, rel Relator) (document.Doc, error) {
	if opts.Select != "" {
		rec = project(rec, opts.Select)
	}
	if opts.Load != "" {
		shaped, err := applyLoad([]document.Doc{rec}, opts.Load, rel)
		if err != nil {
			return nil, err
		}
		rec = shaped[0]
	}
	return rec, nil
}

// applySort sorts by comma-separated `field [desc]` terms. Priority runs
// left to right, so the terms are applied in reverse with a stable sort:
// later (lower-priority) sorts are overridden by earlier ones.
func applySort(records []document.Doc, sortBy string) []document.Doc {
	type sortTerm struct {
		field string
		desc  bool
	}

	var terms []sortTerm
	for _, raw := range strings.Split(sortBy, ",") {
		parts := strings.Fields(raw)
		if len(parts) == 0 {
			continue
		}
		terms = append(terms, sortTerm{
			field: parts[0],
			desc:  len(parts) > 1 && parts[1] == "desc",
		})
	}

	out := make([]document.Doc, len(records))
	copy(out, records)

	for i := len(terms) - 1; i >= 0; i-- {
		term := terms[i]
		sort.SliceStable(out, func(a, b int) bool {
			cmp := document.Compare(out[a][term.field], out[b][term.field])
			if term.desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out
}

// applyDistinct keeps the first-seen record per composite key, preserving
// order of first appearance.
func applyDistinct(records []document.Doc, distinct string) []document.Doc {
	fields := splitFields(distinct)
	seen := make(map[string]bool)
	var out []document.Doc
	for _, rec := range records {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = document.Stringify(rec[f])
		}
		key := strings.Join(parts, constants.DistinctKeySeparator)
		if !seen[key] {
			seen[key] = true
			out = append(out, rec)
		}
	}
	return out
}

// project reduces a record to exactly the listed fields. Absent fields are
// omitted rather than emitted as null.
func project(rec document.Doc, selectExpr string) document.Doc {
	out := document.Doc{}
	for _, f := range splitFields(selectExpr) {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// applyLoad attaches related records. Each directive has the form
// prop=idField:collection, where the related record is looked up in collection
// by the value of idField on the current record, its password hash (if any)
// is stripped, and the result lands under prop.
func applyLoad(records []document.Doc, load string, rel Relator) ([]document.Doc, error) {
	for _, directive := range splitFields(load) {
		propName, relation, ok := strings.Cut(directive, "=")
		if !ok {
			return nil, errInvalidLoad(directive)
		}
		idField, collection, ok := strings.Cut(relation, ":")
		if !ok {
			return nil, errInvalidLoad(directive)
		}

		for _, rec := range records {
			seekID := document.Stringify(rec[idField])
			related, err := rel.Relate(collection, seekID)
			if err != nil {
				return nil, err
			}
			delete(related, constants.FieldHashedPassword)
			rec[propName] = related
		}
	}
	return records, nil
}

func splitFields(expr string) []string {
	var out []string
	for _, f := range strings.Split(expr, ",") {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseNonNegative parses n, falling back to def on absent/invalid input
// and clamping negatives to zero.
func parseNonNegative(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	if n < 0 {
		return 0
	}
	return n
}
