package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/rawkintrevo/agent-lab-ui/internal/app"
	"github.com/rawkintrevo/agent-lab-ui/pkg/config"
	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	// Resolve config path (file flag wins over env)
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	eff, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Explicit flags win over env and config file values.
	if setFlags["addr"] {
		eff.Addr = addrVal
		eff.Source = "flags, " + eff.Source
	}
	if setFlags["db"] || eff.DBPath == "" {
		eff.DBPath = dbVal
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, eff.DBPath)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, eff.DBPath)
	}
	logger.Info("shutdown_complete")
}
