package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/internal/ffmpeg"
	"github.com/video-system/go-cam-recorder/internal/metrics"
	"github.com/video-system/go-cam-recorder/pkg/api"
	"github.com/video-system/go-cam-recorder/pkg/capture"
	"github.com/video-system/go-cam-recorder/pkg/logger"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	mock := flag.Int("mock", 0, "Record N synthetic cameras instead of devices")
	listDevices := flag.Bool("list-devices", false, "List capture devices and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("cam-recorder", version)
		return
	}
	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := capture.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *mock > 0 {
		cfg.Cameras = capture.MockCameras(*mock)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("cam-recorder starting",
		zap.String("version", version),
		zap.String("config", *configPath))

	manager, err := capture.NewManager(cfg, log)
	if err != nil {
		log.Fatal("failed to create manager", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metricsServer := metrics.StartServer(cfg.Metrics.Port, log)

	if err := manager.Start(ctx); err != nil {
		log.Fatal("failed to start cameras", zap.Error(err))
	}

	apiServer := api.NewServer(api.ServerConfig{
		Host:    cfg.API.Host,
		Port:    cfg.API.Port,
		Manager: manager,
	}, log)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error("api server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	// Drain every queue and finalize every open segment before cancelling
	// the context the capture subprocesses inherit. Cancelling first would
	// kill them mid-file.
	manager.Stop()
	cancel()
	apiServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics shutdown", zap.Error(err))
	}

	log.Info("recorder stopped")
}

func printDevices() error {
	ff, err := ffmpeg.New()
	if err != nil {
		return err
	}
	out, err := ff.ListInputDevices(context.Background())
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func newLogger(cfg *capture.Config) (*zap.Logger, error) {
	if cfg.Log.File.Path != "" {
		return logger.NewWithFile(cfg.Log.Level, cfg.Log.File), nil
	}
	return logger.New(cfg.Log.Level)
}
