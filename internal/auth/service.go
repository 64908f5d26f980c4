// Package auth implements registration, login, logout, and bearer-token
// session resolution. It is the sole writer of the protected sessions
// collection; user credentials live in the protected users collection and
// the password hash never leaves the store in API responses.
package auth

import (
	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/logger"
	"docbay/internal/services"
	"docbay/internal/store"
)

// Service provides session and credential operations over the protected
// store. The identity field (e.g. "email") is configurable.
type Service struct {
	protected *store.Store
	identity  string
	logger    *logger.Logger
}

// NewService creates the auth service. The protected store is guaranteed to
// contain the users and sessions collections afterwards.
func NewService(protected *store.Store, identityField string, log *logger.Logger) *Service {
	if identityField == "" {
		identityField = constants.DefaultIdentityField
	}
	protected.EnsureCollection(constants.CollectionUsers)
	protected.EnsureCollection(constants.CollectionSessions)
	return &Service{protected: protected, identity: identityField, logger: log}
}

// IdentityField returns the configured login identity field name.
func (s *Service) IdentityField() string {
	return s.identity
}

// Register creates a new user and an initial session. The identity field
// and password must both be present and non-empty; a duplicate identity is
// a conflict. Returns the stored user (hash stripped) plus accessToken.
func (s *Service) Register(body document.Doc) (document.Doc, error) {
	identity, _ := body[s.identity].(string)
	password, _ := body[constants.FieldPassword].(string)
	if identity == "" || password == "" {
		return nil, services.ErrMissingFields
	}

	existing, err := s.protected.Query(constants.CollectionUsers, map[string]any{s.identity: identity})
	if err != nil {
		return nil, services.WrapInternalError(err)
	}
	if len(existing) != 0 {
		return nil, services.ErrUserExistsWithIdentity(s.identity)
	}

	newUser := body.DeepCopy()
	delete(newUser, constants.FieldPassword)
	newUser[constants.FieldHashedPassword] = Hash(password)

	result, err := s.protected.Add(constants.CollectionUsers, newUser, "")
	if err != nil {
		return nil, services.WrapInternalError(err)
	}
	delete(result, constants.FieldHashedPassword)

	session, err := s.saveSession(result[constants.FieldID].(string))
	if err != nil {
		return nil, err
	}
	result[constants.FieldAccessToken] = session[constants.FieldAccessToken]

	s.logger.Info("Auth: registered %s", identity)
	return result, nil
}

// Login authenticates by identity and password. Zero or ambiguous identity
// matches and hash mismatches all fail with the same generic message so the
// API cannot be used to enumerate users.
func (s *Service) Login(body document.Doc) (document.Doc, error) {
	identity, _ := body[s.identity].(string)
	password, _ := body[constants.FieldPassword].(string)

	matches, err := s.protected.Query(constants.CollectionUsers, map[string]any{s.identity: identity})
	if err != nil {
		return nil, services.WrapInternalError(err)
	}
	if len(matches) != 1 {
		return nil, services.ErrLoginFailed
	}

	user := matches[0]
	storedHash, _ := user[constants.FieldHashedPassword].(string)
	if !VerifyPassword(password, storedHash) {
		return nil, services.ErrLoginFailed
	}
	delete(user, constants.FieldHashedPassword)

	session, err := s.saveSession(user[constants.FieldID].(string))
	if err != nil {
		return nil, err
	}
	user[constants.FieldAccessToken] = session[constants.FieldAccessToken]

	s.logger.Info("Auth: login %s", identity)
	return user, nil
}

// Logout deletes the current principal's session. An anonymous caller has
// no session to delete and fails with a credential error.
func (s *Service) Logout(principal document.Doc) error {
	if principal == nil {
		return services.ErrNoSession
	}
	userID, _ := principal[constants.FieldID].(string)

	sessions, err := s.protected.Query(constants.CollectionSessions, map[string]any{constants.FieldUserID: userID})
	if err != nil {
		return services.WrapInternalError(err)
	}
	if len(sessions) == 0 {
		return nil
	}
	sessionID, _ := sessions[0][constants.FieldID].(string)
	if _, err := s.protected.Delete(constants.CollectionSessions, sessionID); err != nil {
		return services.WrapInternalError(err)
	}
	return nil
}

// ResolveToken maps a bearer token to its user record. A token that does
// not resolve to both a live session and an existing user is invalid.
func (s *Service) ResolveToken(token string) (document.Doc, error) {
	sessions, err := s.protected.Query(constants.CollectionSessions, map[string]any{constants.FieldAccessToken: token})
	if err != nil || len(sessions) == 0 {
		return nil, services.ErrInvalidToken
	}
	userID, _ := sessions[0][constants.FieldUserID].(string)

	user, err := s.protected.Get(constants.CollectionUsers, userID)
	if err != nil {
		return nil, services.ErrInvalidToken
	}
	delete(user, constants.FieldHashedPassword)
	return user, nil
}

// saveSession creates a session record and derives its access token from
// the assigned session ID, writing the token back onto the record.
func (s *Service) saveSession(userID string) (document.Doc, error) {
	session, err := s.protected.Add(constants.CollectionSessions,
		document.Doc{constants.FieldUserID: userID}, "")
	if err != nil {
		return nil, services.WrapInternalError(err)
	}

	sessionID := session[constants.FieldID].(string)
	token := Hash(sessionID)
	session, err = s.protected.Merge(constants.CollectionSessions, sessionID,
		document.Doc{constants.FieldAccessToken: token})
	if err != nil {
		return nil, services.WrapInternalError(err)
	}
	return session, nil
}
