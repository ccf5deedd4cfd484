// firmadmin is the back-office tool for reviewing firm registrations.
//
//	firmadmin list-firms [-pending]
//	firmadmin activate -tax-id RO111
//	firmadmin deactivate -tax-id RO111
//	firmadmin audit [-tax-id RO111] [-action firm.login] [-limit 50]
//	firmadmin sweep-sessions
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lupy1233/cozyhomeV1/internal/config"
	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(database.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	if err != nil {
		fmt.Fprintln(os.Stderr, "database:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newAdmin(db, logger, os.Stdout)
	a.sessionsInRedis = cfg.SessionStore == "redis"
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "firmadmin:", err)
		os.Exit(1)
	}
}
