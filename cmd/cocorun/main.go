// Command cocorun loads an application descriptor, assembles it against a
// registry, starts it, and blocks until SIGINT/SIGTERM for a graceful
// shutdown.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cocomr/coco/assembly"
	"github.com/cocomr/coco/descriptor"
	"github.com/cocomr/coco/registry"
)

func main() {
	var (
		descriptorPath = flag.String("descriptor", "", "path to the application descriptor (file or directory)")
		singleShot     = flag.Bool("single-shot", false, "run every activity for exactly one step; exits afterwards only when the app has a sequential activity, otherwise waits for SIGINT/SIGTERM")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *descriptorPath == "" {
		if flag.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "usage: cocorun -descriptor <path> [-single-shot]")
			os.Exit(2)
		}
		*descriptorPath = flag.Arg(0)
	}

	if err := run(*descriptorPath, *singleShot, logger); err != nil {
		logger.Error("cocorun exited with an error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(descriptorPath string, singleShot bool, logger *slog.Logger) error {
	d, err := descriptor.Load(descriptorPath)
	if err != nil {
		return fmt.Errorf("load descriptor: %w", err)
	}
	if singleShot {
		if d.Launch == nil {
			d.Launch = &descriptor.Launch{}
		}
		d.Launch.SingleShot = true
	}

	reg := registry.New(logger)
	app, err := assembly.Build(reg, d, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	if app.HasSequential() {
		if err := app.Start(); err != nil {
			return fmt.Errorf("start application: %w", err)
		}
		go func() {
			<-sigChan
			logger.Info("shutdown signal received")
			app.Stop()
		}()
		logger.Info("application starting on the calling thread")
		return app.RunSequential()
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	logger.Info("application started")

	<-sigChan
	logger.Info("shutdown signal received")
	return app.Stop()
}
