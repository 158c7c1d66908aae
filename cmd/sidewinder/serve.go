// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentberlin/sidewinder/internal/app"
	"github.com/agentberlin/sidewinder/internal/mcp"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the crawler over MCP",
		Long: `Serve runs the Model Context Protocol server so MCP clients (editors,
agents) can start, stop, resume and inspect crawls with tool calls.

By default the server speaks MCP over stdio, the transport clients use when
they launch the server themselves. With --http it serves the streamable
HTTP transport instead.

Examples:
  # Serve MCP over stdio (for client-launched servers)
  sidewinder serve

  # Serve MCP over HTTP on port 8939
  sidewinder serve --http :8939`,
		RunE: runServeCmd,
	}

	cmd.Flags().String("http", "",
		"Serve the streamable HTTP transport on this address instead of stdio")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := app.CheckBrowser(); err != nil {
		rt.log.Warnf("%v; crawls will fail until a browser is available", err)
	}

	server := mcp.NewMCPServer(rt.app)

	httpAddr, err := cmd.Flags().GetString("http")
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if httpAddr != "" {
		httpServer, err := server.RunHTTP(httpAddr)
		if err != nil {
			return fmt.Errorf("failed to start MCP HTTP server: %v", err)
		}

		<-sigCh
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sigCh
		cancel()
	}()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
