package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/config"
	"github.com/tomz197/fabric/internal/loop/server"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

//go:embed index.html
var htmlPage string

func main() {
	logger, err := config.NewLogger(os.Stderr, "web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fabric-web: %v\n", err)
		os.Exit(1)
	}

	host := config.GetEnv("WEB_HOST", defaultHost)
	port := config.GetEnv("WEB_PORT", defaultPort)
	sshHost := config.GetEnv("SSH_DISPLAY_HOST", "your-server.com")

	cfg, err := config.ClothFromEnv(cloth.DefaultConfig())
	if err != nil {
		logger.Fatal("invalid cloth configuration", "err", err)
	}
	simServer, err := server.NewServer(cfg, logger.WithPrefix("sim"))
	if err != nil {
		logger.Fatal("failed to build simulation", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	simDone := make(chan error, 1)
	go func() { simDone <- simServer.Run(ctx) }()

	addr := net.JoinHostPort(host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(simServer, strings.ReplaceAll(htmlPage, "{{.SSHHost}}", sshHost), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting web server", "addr", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-simDone:
		logger.Error("simulation stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("shutdown error", "err", err)
	}
}
