package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"docbay/internal/auth"
	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/query"
	"docbay/internal/rules"
	"docbay/internal/services"
)

// handleCollections serves GET /data: the names of all collections.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
		return
	}
	WriteSuccess(w, s.app.Public.Collections())
}

// handleDataRoutes dispatches /data/{collection}[/{id}] to the CRUD
// handlers. Anything deeper than an ID is malformed.
func (s *Server) handleDataRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/data/"), "/")
	tokens := strings.Split(path, "/")

	if path == "" {
		s.handleCollections(w, r)
		return
	}
	if len(tokens) > 2 {
		s.handleServiceError(w, services.ErrBadRequest)
		return
	}

	collection := tokens[0]
	id := ""
	if len(tokens) == 2 {
		id = tokens[1]
	}

	switch r.Method {
	case http.MethodGet:
		s.handleRead(w, r, collection, id)
	case http.MethodPost:
		s.handleCreate(w, r, collection, id)
	case http.MethodPut:
		s.handleReplace(w, r, collection, id)
	case http.MethodPatch:
		s.handleMerge(w, r, collection, id)
	case http.MethodDelete:
		s.handleDelete(w, r, collection, id)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", constants.ErrCodeInvalidRequest)
	}
}

// handleRead serves both list/query reads and get-by-id. A where directive
// replaces the ID lookup entirely; the two are never combined.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request, collection, id string) {
	user := auth.GetPrincipal(r)
	admin := auth.IsAdmin(r)
	opts := query.ParseOptions(r.URL.Query())

	if id != "" && opts.Where == "" {
		rec, err := s.app.Public.Get(collection, id)
		if err != nil {
			s.handleServiceError(w, err)
			return
		}
		req := &rules.Request{
			Action:     rules.ActionRead,
			Collection: collection,
			User:       user,
			Data:       rec,
			Admin:      admin,
		}
		if err := s.app.Rules.CanAccess(req); err != nil {
			s.handleServiceError(w, err)
			return
		}
		shaped, err := query.ShapeSingle(rec, opts, s.app)
		if err != nil {
			s.handleServiceError(w, err)
			return
		}
		WriteSuccess(w, shaped)
		return
	}

	records, err := s.app.Public.List(collection)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	if opts.Where != "" {
		pred, err := query.ParseWhere(opts.Where)
		if err != nil {
			s.handleServiceError(w, err)
			return
		}
		records, err = query.Filter(records, pred)
		if err != nil {
			s.handleServiceError(w, err)
			return
		}
	}

	// Redact before shaping so select and load never see hidden fields.
	if err := s.app.Rules.RedactList(user, collection, records, admin); err != nil {
		s.handleServiceError(w, err)
		return
	}

	result, err := query.Apply(records, opts, s.app)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}
	WriteSuccess(w, result)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, collection, id string) {
	if id != "" {
		s.handleServiceError(w, services.ErrUsePut)
		return
	}

	user := auth.GetPrincipal(r)
	admin := auth.IsAdmin(r)

	body, err := readBody(r)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	req := &rules.Request{
		Action:     rules.ActionCreate,
		Collection: collection,
		User:       user,
		NewData:    body,
		Admin:      admin,
	}
	if err := s.app.Rules.CanAccess(req); err != nil {
		s.handleServiceError(w, err)
		return
	}

	ownerID := principalID(user)
	result, err := s.app.Public.Add(collection, body, ownerID)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionRecordCreated, collection, recordID(result), ownerID, result)
	WriteSuccess(w, result)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request, collection, id string) {
	s.handleUpdate(w, r, collection, id, s.app.Public.Set)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request, collection, id string) {
	s.handleUpdate(w, r, collection, id, s.app.Public.Merge)
}

type updateFn func(collection, id string, data document.Doc) (document.Doc, error)

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, collection, id string, update updateFn) {
	if id == "" {
		s.handleServiceError(w, services.ErrMissingID)
		return
	}

	user := auth.GetPrincipal(r)
	admin := auth.IsAdmin(r)

	existing, err := s.app.Public.Get(collection, id)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	req := &rules.Request{
		Action:     rules.ActionUpdate,
		Collection: collection,
		User:       user,
		Data:       existing,
		NewData:    body,
		Admin:      admin,
	}
	if err := s.app.Rules.CanAccess(req); err != nil {
		s.handleServiceError(w, err)
		return
	}

	result, err := update(collection, id, body)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionRecordUpdated, collection, id, principalID(user), result)
	WriteSuccess(w, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, collection, id string) {
	if id == "" {
		s.handleServiceError(w, services.ErrMissingID)
		return
	}

	user := auth.GetPrincipal(r)
	admin := auth.IsAdmin(r)

	existing, err := s.app.Public.Get(collection, id)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	req := &rules.Request{
		Action:     rules.ActionDelete,
		Collection: collection,
		User:       user,
		Data:       existing,
		Admin:      admin,
	}
	if err := s.app.Rules.CanAccess(req); err != nil {
		s.handleServiceError(w, err)
		return
	}

	marker, err := s.app.Public.Delete(collection, id)
	if err != nil {
		s.handleServiceError(w, err)
		return
	}

	s.app.audited(constants.AuditActionRecordDeleted, collection, id, principalID(user), existing)
	WriteSuccess(w, marker)
}

// readBody decodes the request body into a document. An empty body yields
// an empty document; malformed JSON is a request error.
func readBody(r *http.Request) (document.Doc, error) {
	defer r.Body.Close()

	var body document.Doc
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return document.Doc{}, nil
		}
		return nil, services.WrapServiceError(constants.ErrCodeInvalidRequest, "Invalid request body", err)
	}
	if body == nil {
		body = document.Doc{}
	}
	return body, nil
}

func principalID(user document.Doc) string {
	if user == nil {
		return ""
	}
	return document.Stringify(user[constants.FieldID])
}

func recordID(rec document.Doc) string {
	if rec == nil {
		return ""
	}
	return document.Stringify(rec[constants.FieldID])
}
