package main

import (
	"context"
	"fmt"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/richardthorek/Station-Manager-sub004/internal/daemon"
	"github.com/richardthorek/Station-Manager-sub004/internal/ipc"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
)

// runDaemonProcess hosts the daemon in the current process until a
// termination signal arrives.
func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, unix.SIGINT, unix.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := daemon.Bootstrap(cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap daemon: %w", err)
	}
	defer d.Close()

	socket := ctx.socketPath()
	ipcServer, err := ipc.NewServer(signalCtx, socket, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("station daemon shutting down")
	return nil
}
