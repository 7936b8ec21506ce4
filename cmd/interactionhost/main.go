/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// interactionhost runs the editor-side RPC host standalone: it starts the
// encrypted loopback server, publishes the connection info exactly once
// (stdout or a file), and presents interaction requests on the console.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotnet/aspire-sub011/internal/debug"
	"github.com/dotnet/aspire-sub011/internal/interaction"
	"github.com/dotnet/aspire-sub011/internal/launch"
	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/internal/server"
	"github.com/dotnet/aspire-sub011/pkg/logger"
	"github.com/dotnet/aspire-sub011/pkg/osutil"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	log := logger.New("interactionhost")

	var connectionFile string
	var adaptersFile string

	cmd := &cobra.Command{
		Use:          "interactionhost",
		Short:        "Hosts the orchestrator-to-editor interaction RPC server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), log, connectionFile, adaptersFile)
		},
	}

	log.AddLevelFlag(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&connectionFile, "connection-file", "",
		"write the connection info JSON to this file instead of stdout")
	cmd.PersistentFlags().StringVar(&adaptersFile, "adapters-file", "",
		"JSON file mapping launch configuration types to debug adapter commands")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cobra.OnFinalize(stop, log.Flush)

	return cmd
}

// readAdapterConfigs loads the launch-kind to debug-adapter command mapping
// from a JSON file, e.g. {"project": {"args": ["netcoredbg", "--interpreter=vscode"]}}.
// An empty path means no adapters are configured.
func readAdapterConfigs(path string) (map[launch.Kind]*debug.AdapterConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read adapters file: %w", readErr)
	}
	var adapters map[launch.Kind]*debug.AdapterConfig
	if unmarshalErr := json.Unmarshal(data, &adapters); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse adapters file %q: %w", path, unmarshalErr)
	}
	return adapters, nil
}

func run(ctx context.Context, log *logger.Logger, connectionFile string, adaptersFile string) error {
	adapters, adaptersErr := readAdapterConfigs(adaptersFile)
	if adaptersErr != nil {
		return adaptersErr
	}

	sessionCtx := interaction.NewSessionContext(os.Stdout)

	surface := newConsoleSurface(os.Stdin, os.Stderr)
	service := interaction.NewService(interaction.Config{
		Context: sessionCtx,
		Surface: surface,
		Logger:  log.Logger,
	})
	surface.setService(service)

	settingsCache, cacheErr := launch.NewSettingsCache(log.Logger)
	if cacheErr != nil {
		return fmt.Errorf("failed to create launch settings cache: %w", cacheErr)
	}
	defer settingsCache.Close()

	manager := debug.NewManager(ctx, debug.ManagerConfig{
		Settings: settingsCache,
		Adapters: adapters,
		OpenURL: func(url string) {
			// No browser integration in the standalone host; the URL still
			// lands in the durable output.
			sessionCtx.AppendOutputLine(fmt.Sprintf("Application ready: %s", url))
		},
		OutputSink: func(stream, text string) {
			sessionCtx.AppendOutput(interaction.OutputLine{Stream: stream, Text: text})
		},
		Logger: log.Logger,
	})
	defer manager.StopAll()

	router := rpc.NewRouter()
	service.RegisterMethods(router)
	manager.RegisterMethods(router)

	srv := server.New(server.Config{
		Router:       router,
		OnConnection: service.BindConnection,
		Logger:       log.Logger,
	})

	info, startErr := srv.Start(ctx)
	if startErr != nil {
		return startErr
	}

	// The connection info is published exactly once.
	published, marshalErr := json.Marshal(info)
	if marshalErr != nil {
		return marshalErr
	}
	if connectionFile != "" {
		// The file carries the token, so it is readable by the owner only.
		if writeErr := os.WriteFile(connectionFile, append(published, '\n'), osutil.PermissionOnlyOwnerReadWrite); writeErr != nil {
			return fmt.Errorf("failed to write connection file: %w", writeErr)
		}
	} else {
		fmt.Println(string(published))
	}

	go surface.run(ctx)

	<-ctx.Done()
	return nil
}
