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
	"fmt"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all crawls, newest first",
		RunE:  runListCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	crawls, err := rt.app.ListCrawls(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list crawls: %v", err)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if jsonOutput {
		data, err := json.MarshalIndent(crawls, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(crawls) == 0 {
		fmt.Println("No crawls found.")
		return nil
	}

	fmt.Printf("%-36s %-24s %-36s %-10s %-8s %-16s\n", "ID", "Name", "Base URL", "State", "Pages", "Started")
	for _, st := range crawls {
		fmt.Printf("%-36s %-24s %-36s %-10s %-8d %-16s\n",
			st.CrawlID,
			truncate(st.Name, 24),
			truncate(st.BaseURL, 36),
			crawlState(st),
			st.PagesCrawled,
			st.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

// truncate shortens a string for table display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
