package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tintaacademy/migrator/core"
	logsvc "github.com/tintaacademy/migrator/services/logger"
)

var logger *logsvc.ZapLogger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	logger, err = logsvc.NewLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// start CLI
	cli := commandLine{
		conf:      conf,
		log:       logger,
		out:       os.Stdout,
		container: newContainer,
	}
	err = cli.run(ctx, os.Args)
	stop()
	if err != nil {
		if err != errHelp {
			errAndDie(err)
		}
		os.Exit(1)
	}
	logger.Sync()
}

func errAndDie(err error) {
	if core.IsConfigError(err) {
		logger.Fatal("configuration error", "error", err)
	}
	logger.Fatal("migration failed", "error", err)
}
