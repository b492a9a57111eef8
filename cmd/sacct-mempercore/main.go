// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/hpc-reporting/sacct-mempercore/app/sacct"
	"github.com/hpc-reporting/sacct-mempercore/pkg/cmd"
	"github.com/hpc-reporting/sacct-mempercore/pkg/utils"
)

func main() {
	ctx, cancel := ctrlCHandler()
	defer cancel()

	app := cmd.NewApp(sacct.ExecRunner{}, &utils.Clock{}, os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run command")
	}
}

// ctrlCHandler cancels the returned context on SIGINT or SIGTERM.
func ctrlCHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()
	return ctx, cancel
}
