// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/harveybc/doin-core/crypto"
	"github.com/harveybc/doin-core/log"
	"github.com/harveybc/doin-core/node"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to a TOML node configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory for identity key and persisted state",
		Value: "./datadir",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log verbosity (0=crit ... 5=trace)",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:  "doind",
		Usage: "doin-core proof-of-optimization node",
		Flags: []cli.Flag{configFlag, dataDirFlag, verbosityFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	setupLogging(c.Int("verbosity"))

	cfg := node.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := node.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if dir := c.String("datadir"); dir != "" {
		cfg.DataDir = dir
		cfg.IdentityKeyPath = dir + "/identity.pem"
	}

	identity, err := crypto.LoadOrCreateIdentity(cfg.IdentityKeyPath)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.Info("identity loaded", "peer_id", identity.PeerID)

	engine, err := node.NewEngine(cfg, identity)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	registry := prometheus.NewRegistry()
	node.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	defer engine.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received")
	return nil
}

func setupLogging(verbosity int) {
	handler := log.NewTerminalHandler(os.Stderr, true)
	if lvl, ok := handler.(interface{ Verbosity(log.Level) }); ok {
		lvl.Verbosity(log.Level(12 - verbosity*4))
	}
	log.SetDefault(log.NewLogger(handler))
}
