package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/app"
	"github.com/longbo188/workshop-sub000/internal/cli"
	applogger "github.com/longbo188/workshop-sub000/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(cli.Options{
		Out:        os.Stdout,
		LoadConfig: config.Load,
		NewLogger:  applogger.NewLogger,
		Open:       open,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func open(cfg *config.Config, logger *zap.Logger) (*cli.Runtime, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &cli.Runtime{
		Efficiency: a.Service.Efficiency,
		Close:      a.Close,
	}, nil
}
