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
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kennygrant/sanitize"
	"github.com/spf13/cobra"

	"github.com/agentberlin/sidewinder"
	"github.com/agentberlin/sidewinder/internal/app"
	"github.com/agentberlin/sidewinder/internal/config"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a crawl to completion",
		Long: `Crawl starts at the base URL and follows same-site links breadth-first,
saving the rendered HTML of every visited page to the configured blob store.

Pages are rendered in headless Chrome, so content that only appears after
JavaScript runs is captured too. Links are filtered by the site's robots.txt,
the keyword list, and the ignore patterns before they are queued.

Examples:
  # Crawl a documentation site
  sidewinder crawl --base-url https://docs.example.com

  # Only follow URLs that mention the product
  sidewinder crawl --base-url https://example.com -k widget -k gadget

  # Eight pages in flight at a time, skipping the changelog
  sidewinder crawl --base-url https://example.com -p 8 --ignore "*/changelog/*"

  # Use a custom configuration file
  sidewinder crawl -c myconfig.yaml --base-url https://example.com`,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("base-url", "u", "",
		"Absolute URL the crawl starts from")
	cmd.Flags().StringP("name", "n", "",
		"Crawl name, prefixes every saved blob key (default: derived from the host)")
	cmd.Flags().StringSliceP("keyword", "k", nil,
		"Only follow URLs containing this keyword (repeatable)")
	cmd.Flags().IntP("parallel", "p", 0,
		"Number of pages extracted concurrently per step")
	cmd.Flags().StringP("user-agent", "A", "",
		"User-Agent sent with requests and tested against robots.txt rules")
	cmd.Flags().StringSlice("ignore", nil,
		"Glob pattern for URLs to skip (repeatable)")
	cmd.Flags().Int("max-url-length", 0,
		"Drop discovered URLs longer than this many bytes")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, err := buildCrawlConfig(cmd, rt.file)
	if err != nil {
		return err
	}

	if err := app.CheckBrowser(); err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, stopping crawl...")
		cancel()
	}()

	fmt.Printf("Starting crawl %s for %s...\n", cfg.CrawlName, cfg.BaseURL)
	startTime := time.Now()

	cc, err := rt.app.RunCrawl(ctx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printStopped(rt, cc.CrawlID, time.Since(startTime))
			return nil
		}
		return fmt.Errorf("crawl failed: %v", err)
	}

	st, err := rt.app.Status(context.Background(), cc.CrawlID)
	if err != nil {
		return fmt.Errorf("failed to get crawl status: %v", err)
	}

	fmt.Printf("\nCrawl completed in %s!\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("  Crawl ID:      %s\n", st.CrawlID)
	fmt.Printf("  Pages crawled: %d\n", st.PagesCrawled)
	return nil
}

// printStopped reports what an interrupted crawl got done before it was
// stopped.
func printStopped(rt *runtime, crawlID string, elapsed time.Duration) {
	fmt.Printf("\nCrawl stopped after %s.\n", elapsed.Round(time.Second))
	st, err := rt.app.Status(context.Background(), crawlID)
	if err != nil {
		return
	}
	fmt.Printf("  Pages visited: %d\n", st.Visited)
	fmt.Printf("  Still queued:  %d\n", st.Queued)
}

// buildCrawlConfig builds the crawl configuration from the config file's
// crawl section with the command flags layered on top.
func buildCrawlConfig(cmd *cobra.Command, file *config.File) (*sidewinder.Config, error) {
	cfg, err := file.CrawlConfig()
	if err != nil {
		return nil, err
	}

	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return nil, err
	}
	if name != "" {
		cfg.CrawlName = name
	}

	keywords, err := cmd.Flags().GetStringSlice("keyword")
	if err != nil {
		return nil, err
	}
	if len(keywords) > 0 {
		cfg.PathKeywords = keywords
	}

	parallel, err := cmd.Flags().GetInt("parallel")
	if err != nil {
		return nil, err
	}
	if parallel > 0 {
		cfg.ParallelURLsToSync = parallel
	}

	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}

	ignore, err := cmd.Flags().GetStringSlice("ignore")
	if err != nil {
		return nil, err
	}
	if len(ignore) > 0 {
		cfg.IgnorePatterns = ignore
	}

	maxURLLength, err := cmd.Flags().GetInt("max-url-length")
	if err != nil {
		return nil, err
	}
	if maxURLLength > 0 {
		cfg.MaxURLLength = maxURLLength
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("a base URL is required (--base-url or the crawl section of the config file)")
	}
	if cfg.CrawlName == "" {
		if cfg.CrawlName, err = deriveCrawlName(cfg.BaseURL); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// deriveCrawlName turns the base URL's host into a blob-key-safe crawl name.
func deriveCrawlName(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("cannot derive a crawl name from %q, pass --name explicitly", baseURL)
	}
	return sanitize.BaseName(u.Hostname()), nil
}
