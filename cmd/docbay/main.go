package main

import (
	"flag"
	"fmt"
	"os"

	"docbay/internal/audit"
	"docbay/internal/config"
	"docbay/internal/constants"
	"docbay/internal/logger"
	"docbay/internal/seed"
	"docbay/internal/server"
	"docbay/internal/store"
	"docbay/internal/version"
)

func main() {
	// 0. Flags
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", constants.ConfigFile, "path to the configuration file")
	flag.Parse()
	if *showVersion {
		fmt.Printf("%s %s\n", constants.AppDisplayName, version.Version)
		os.Exit(0)
	}

	// 1. Initialize logger
	log := logger.NewLogger(constants.DefaultLogLevel)
	log.Info("%s version %s starting", constants.AppDisplayName, version.Version)

	// 2. Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := log.SetLogFile(cfg.LogFile); err != nil {
			log.Warn("Failed to enable file logging: %v", err)
		}
	}
	cfg.LogEffectiveValues(log)

	// 3. Seed the stores
	publicSeed, err := seed.LoadDataDir(cfg.Seed.DataDir, log)
	if err != nil {
		log.Error("Failed to load seed data: %v", err)
		os.Exit(1)
	}
	protectedSeed, err := seed.LoadProtected(cfg.Seed.ProtectedPath, log)
	if err != nil {
		log.Error("Failed to load protected seed: %v", err)
		os.Exit(1)
	}
	public := store.NewStore(publicSeed)
	protected := store.NewStore(protectedSeed)

	// 4. Load access rules
	rawRules, err := seed.LoadRules(cfg.RulesPath, log)
	if err != nil {
		log.Error("Failed to load rules: %v", err)
		os.Exit(1)
	}

	// 5. Create application instance
	app := server.NewApp(cfg, log, public, protected, rawRules)

	if cfg.Audit.Enabled {
		auditLogger, err := audit.Open(cfg.Audit.DBPath)
		if err != nil {
			log.Error("Failed to open audit log: %v", err)
			os.Exit(1)
		}
		app.AuditLogger = auditLogger
		log.Debug("Audit logger initialized at %s", cfg.Audit.DBPath)
	}

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.NewServer(app, addr)

	log.Info("Starting %s server on port %d", constants.AppDisplayName, cfg.Port)
	if err := srv.Start(); err != nil {
		log.Error("Server error: %v", err)
		os.Exit(1)
	}
}
