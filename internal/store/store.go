// Package store implements the in-memory, collection-oriented record store.
// Collections are created on first write and hold documents keyed by ID.
// Every document crossing the store boundary is a deep copy, so callers
// never alias internal state.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/services"
)

// Store owns a set of named collections. All operations are safe for
// concurrent use: a single RWMutex serializes the multi-step mutations
// (existence check, copy, mutate, stamp) that requests perform.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]document.Doc
}

// NewStore creates a store, optionally populated from a seed snapshot.
// Seed documents are deep-copied in; the caller keeps ownership of seed.
func NewStore(seed map[string]map[string]document.Doc) *Store {
	s := &Store{collections: make(map[string]map[string]document.Doc)}
	for name, records := range seed {
		coll := make(map[string]document.Doc, len(records))
		for id, rec := range records {
			coll[id] = rec.DeepCopy()
		}
		s.collections[name] = coll
	}
	return s
}

// EnsureCollection creates an empty collection if it does not exist.
func (s *Store) EnsureCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]document.Doc)
	}
}

// Collections returns the names of all existing collections, sorted.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all records in a collection as copies with _id attached.
func (s *Store) List(collection string) ([]document.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}

	result := make([]document.Doc, 0, len(coll))
	for id, rec := range coll {
		out := rec.DeepCopy()
		out[constants.FieldID] = id
		result = append(result, out)
	}
	// Map iteration order is random; keep list output stable.
	sort.Slice(result, func(i, j int) bool {
		return result[i][constants.FieldID].(string) < result[j][constants.FieldID].(string)
	})
	return result, nil
}

// Get returns a single record by ID as a copy with _id attached.
func (s *Store) Get(collection, id string) (document.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}
	rec, ok := coll[id]
	if !ok {
		return nil, services.ErrRecordNotFoundWithID(id)
	}

	out := rec.DeepCopy()
	out[constants.FieldID] = id
	return out, nil
}

// Add creates a new record, generating an ID guaranteed distinct from every
// existing key in the collection. The collection is created lazily. Reserved
// fields on data are ignored; ownerID (when non-empty) becomes _ownerId and
// _createdOn is stamped with the current server time.
func (s *Store) Add(collection string, data document.Doc, ownerID string) (document.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]document.Doc)
		s.collections[collection] = coll
	}

	record := document.AssignClean(document.Doc{}, data)
	if ownerID != "" {
		record[constants.FieldOwnerID] = ownerID
	}
	record[constants.FieldCreatedOn] = float64(time.Now().UnixMilli())

	id := NewID()
	for _, exists := coll[id]; exists; _, exists = coll[id] {
		id = NewID()
	}
	coll[id] = record

	out := record.DeepCopy()
	out[constants.FieldID] = id
	return out, nil
}

// Set fully replaces a record. The four reserved fields are carried over
// from the existing record regardless of what the caller supplied, and
// _updatedOn is stamped.
func (s *Store) Set(collection, id string, data document.Doc) (document.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}
	existing, ok := coll[id]
	if !ok {
		return nil, services.ErrRecordNotFoundWithID(id)
	}

	record := document.AssignClean(document.Doc{}, data)
	document.PreserveSystemFields(record, existing)
	record[constants.FieldUpdatedOn] = float64(time.Now().UnixMilli())
	coll[id] = record

	out := record.DeepCopy()
	out[constants.FieldID] = id
	return out, nil
}

// Merge shallow-merges the caller's fields into the existing record.
// Reserved fields are stripped from the patch, never merged, and fields
// absent from the patch are left untouched.
func (s *Store) Merge(collection, id string, data document.Doc) (document.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}
	existing, ok := coll[id]
	if !ok {
		return nil, services.ErrRecordNotFoundWithID(id)
	}

	record := document.AssignClean(existing.DeepCopy(), data)
	record[constants.FieldUpdatedOn] = float64(time.Now().UnixMilli())
	coll[id] = record

	out := record.DeepCopy()
	out[constants.FieldID] = id
	return out, nil
}

// Delete removes a record and returns a deletion timestamp marker.
// Deleting an absent record fails with a not-found error, never silently.
func (s *Store) Delete(collection, id string) (document.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}
	if _, ok := coll[id]; !ok {
		return nil, services.ErrRecordNotFoundWithID(id)
	}
	delete(coll, id)

	return document.Doc{constants.FieldDeletedOn: float64(time.Now().UnixMilli())}, nil
}

// Query returns every record matching all fields of the predicate map.
// String values compare case-insensitively; other types compare by loose
// equality. Matches are returned as copies with _id attached.
func (s *Store) Query(collection string, predicate map[string]any) ([]document.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, services.ErrCollectionNotFoundWithName(collection)
	}

	var result []document.Doc
	for id, rec := range coll {
		if matchesPredicate(rec, predicate) {
			out := rec.DeepCopy()
			out[constants.FieldID] = id
			result = append(result, out)
		}
	}
	return result, nil
}

func matchesPredicate(rec document.Doc, predicate map[string]any) bool {
	for prop, want := range predicate {
		got, ok := rec[prop]
		if !ok {
			return false
		}
		wantStr, wOK := want.(string)
		gotStr, gOK := got.(string)
		if wOK && gOK {
			if !strings.EqualFold(wantStr, gotStr) {
				return false
			}
			continue
		}
		if !document.LooseEqual(want, got) {
			return false
		}
	}
	return true
}
