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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentberlin/sidewinder/internal/app"
	"github.com/agentberlin/sidewinder/storage"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <crawl-id>",
		Short: "Show the state of one crawl",
		Long: `Status reports one crawl: whether it is running or finished, how many
pages it has crawled, and the live frontier counts while it is in progress.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatusCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.app.Status(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, storage.ErrCrawlNotFound) {
			return fmt.Errorf("no crawl found with id %s", args[0])
		}
		return fmt.Errorf("failed to get crawl status: %v", err)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if jsonOutput {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Crawl ID:      %s\n", st.CrawlID)
	fmt.Printf("Name:          %s\n", st.Name)
	fmt.Printf("Base URL:      %s\n", st.BaseURL)
	fmt.Printf("State:         %s\n", crawlState(st))
	fmt.Printf("Started:       %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
	if st.Finished {
		fmt.Printf("Ended:         %s\n", st.EndedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Pages crawled: %d\n", st.PagesCrawled)

	// Frontier counts exist only while the frontier does; they are filled in
	// for crawls tracked by this process.
	if !st.Finished && st.Queued+st.Dispatched+st.Visited > 0 {
		fmt.Printf("Frontier:      %d queued, %d dispatched, %d visited\n",
			st.Queued, st.Dispatched, st.Visited)
	}
	return nil
}

// crawlState renders the status booleans as one word.
func crawlState(st app.CrawlStatus) string {
	switch {
	case st.Running:
		return "running"
	case st.Finished:
		return "finished"
	default:
		return "stopped"
	}
}
