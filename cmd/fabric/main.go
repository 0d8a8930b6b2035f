package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/config"
	"github.com/tomz197/fabric/internal/loop/client"
	"github.com/tomz197/fabric/internal/loop/server"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fabric: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ClothFromEnv(cloth.DefaultConfig())
	if err != nil {
		return err
	}

	// Logs would corrupt the full-screen view, so they go to a file or nowhere.
	out, closeLog, err := config.LogOutput()
	if err != nil {
		return err
	}
	defer closeLog()
	logger, err := config.NewLogger(out, "fabric")
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	simErr := make(chan error, 1)
	go func() { simErr <- srv.Run(ctx) }()

	c := client.NewClient(srv, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{
		Username: config.GetEnv("USER", "local"),
	})
	if err := c.Run(); err != nil {
		return err
	}

	cancel()
	return <-simErr
}
