package server

import (
	"sync/atomic"
	"time"

	"docbay/internal/audit"
	"docbay/internal/auth"
	"docbay/internal/config"
	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/logger"
	"docbay/internal/rules"
	"docbay/internal/store"
)

// App holds all application state and dependencies
type App struct {
	Config      *config.Config
	Logger      *logger.Logger
	Public      *store.Store
	Protected   *store.Store
	Auth        *auth.Service
	Rules       *rules.Checker
	AuditLogger *audit.Logger // nil when auditing is disabled
	StartedAt   time.Time

	throttled atomic.Bool
}

// NewApp wires the application together. rawRules is the parsed rules
// mapping (nil falls back to the built-in defaults).
func NewApp(cfg *config.Config, log *logger.Logger, public, protected *store.Store, rawRules map[string]any) *App {
	app := &App{
		Config:    cfg,
		Logger:    log,
		Public:    public,
		Protected: protected,
		Auth:      auth.NewService(protected, cfg.IdentityField, log),
		StartedAt: time.Now(),
	}
	if rawRules == nil {
		rawRules = map[string]any{}
	}
	ruleSet := rules.NewRuleSet(rawRules, log)
	app.Rules = rules.NewChecker(ruleSet, app.relate, log)
	app.throttled.Store(cfg.Throttle)
	return app
}

// Throttled reports whether the simulated slow connection is switched on.
func (a *App) Throttled() bool {
	return a.throttled.Load()
}

// SetThrottled switches the simulated slow connection on or off.
func (a *App) SetThrottled(on bool) {
	a.throttled.Store(on)
}

// relate resolves related records for load directives and rule-expression
// get() calls. User lookups route to the protected store; the hash never
// leaves it.
func (a *App) relate(collection, id string) (document.Doc, error) {
	if collection == constants.CollectionUsers {
		rec, err := a.Protected.Get(collection, id)
		if err != nil {
			return nil, err
		}
		delete(rec, constants.FieldHashedPassword)
		return rec, nil
	}
	return a.Public.Get(collection, id)
}

// Relate implements query.Relator.
func (a *App) Relate(collection, id string) (document.Doc, error) {
	return a.relate(collection, id)
}

// audited records a mutation when auditing is enabled. Audit failures are
// logged, never surfaced to the client.
func (a *App) audited(action, collection, recordID, userID string, record document.Doc) {
	if a.AuditLogger == nil {
		return
	}
	if err := a.AuditLogger.Log(action, collection, recordID, userID, record); err != nil {
		a.Logger.Error("Audit: %v", err)
	}
}
