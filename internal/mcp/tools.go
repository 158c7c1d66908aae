package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kennygrant/sanitize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentberlin/sidewinder"
)

// registerTools registers all MCP tools with the server
func (s *MCPServer) registerTools() {
	// Crawl lifecycle tools
	s.registerStartCrawlTool()
	s.registerStopCrawlTool()
	s.registerResumeCrawlTool()

	// Inspection tools
	s.registerCrawlStatusTool()
	s.registerListCrawlsTool()
}

// StartCrawlArgs defines the input schema for start_crawl
type StartCrawlArgs struct {
	BaseURL        string   `json:"baseUrl"`
	Name           string   `json:"name,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Parallelism    *int     `json:"parallelism,omitempty"`
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
	UserAgent      *string  `json:"userAgent,omitempty"`
	MaxURLLength   *int     `json:"maxUrlLength,omitempty"`
}

// StartCrawlResult defines the output schema for start_crawl
type StartCrawlResult struct {
	Success bool   `json:"success"`
	CrawlID string `json:"crawlId,omitempty"`
	Name    string `json:"name,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
	Message string `json:"message"`
}

// buildCrawlConfig translates tool arguments into a crawl config. A missing
// name is derived from the host of the base URL.
func buildCrawlConfig(args StartCrawlArgs) (*sidewinder.Config, error) {
	cfg := sidewinder.NewDefaultConfig()
	cfg.BaseURL = args.BaseURL
	cfg.CrawlName = args.Name
	cfg.PathKeywords = args.Keywords
	if args.Parallelism != nil {
		cfg.ParallelURLsToSync = *args.Parallelism
	}
	if len(args.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = args.IgnorePatterns
	}
	if args.UserAgent != nil {
		cfg.UserAgent = *args.UserAgent
	}
	if args.MaxURLLength != nil {
		cfg.MaxURLLength = *args.MaxURLLength
	}
	if cfg.CrawlName == "" {
		name, err := deriveCrawlName(args.BaseURL)
		if err != nil {
			return nil, err
		}
		cfg.CrawlName = name
	}
	return cfg, nil
}

// deriveCrawlName turns the base URL's host into a blob-key-safe crawl name.
func deriveCrawlName(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("cannot derive a crawl name from %q, pass name explicitly", baseURL)
	}
	return sanitize.BaseName(u.Hostname()), nil
}

// registerStartCrawlTool registers the start_crawl tool
func (s *MCPServer) registerStartCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_crawl",
		Description: "Starts a breadth-first crawl of a website and returns its crawl ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StartCrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: start_crawl for URL: %s", args.BaseURL)

		cfg, err := buildCrawlConfig(args)
		if err != nil {
			return nil, StartCrawlResult{
				Success: false,
				Message: err.Error(),
			}, nil
		}

		cc, err := s.app.StartCrawl(ctx, cfg)
		if err != nil {
			return nil, StartCrawlResult{
				Success: false,
				Message: fmt.Sprintf("Failed to start crawl: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Crawl %s started for %s (crawl ID: %s)", cc.CrawlName, cc.BaseURL, cc.CrawlID),
				},
			},
		}, StartCrawlResult{
			Success: true,
			CrawlID: cc.CrawlID,
			Name:    cc.CrawlName,
			BaseURL: cc.BaseURL,
			Message: "Crawl started successfully",
		}, nil
	})
}

// StopCrawlArgs defines the input schema for stop_crawl
type StopCrawlArgs struct {
	CrawlID string `json:"crawlId"`
}

// StopCrawlResult defines the output schema for stop_crawl
type StopCrawlResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// registerStopCrawlTool registers the stop_crawl tool
func (s *MCPServer) registerStopCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_crawl",
		Description: "Stops a running crawl; its progress stays in the frontier for a later resume",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StopCrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: stop_crawl for crawl ID: %s", args.CrawlID)

		if err := s.app.StopCrawl(args.CrawlID); err != nil {
			return nil, StopCrawlResult{
				Success: false,
				Message: fmt.Sprintf("Failed to stop crawl: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Crawl %s stopped", args.CrawlID),
				},
			},
		}, StopCrawlResult{
			Success: true,
			Message: "Crawl stopped successfully",
		}, nil
	})
}

// ResumeCrawlArgs defines the input schema for resume_crawl
type ResumeCrawlArgs struct {
	CrawlID string `json:"crawlId"`
}

// ResumeCrawlResult defines the output schema for resume_crawl
type ResumeCrawlResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// registerResumeCrawlTool registers the resume_crawl tool
func (s *MCPServer) registerResumeCrawlTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resume_crawl",
		Description: "Resumes a stopped crawl from the paths still waiting in its frontier",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ResumeCrawlArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: resume_crawl for crawl ID: %s", args.CrawlID)

		if err := s.app.ResumeCrawl(ctx, args.CrawlID); err != nil {
			return nil, ResumeCrawlResult{
				Success: false,
				Message: fmt.Sprintf("Failed to resume crawl: %v", err),
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Crawl %s resumed", args.CrawlID),
				},
			},
		}, ResumeCrawlResult{
			Success: true,
			Message: "Crawl resumed successfully",
		}, nil
	})
}

// CrawlStatusArgs defines the input schema for crawl_status
type CrawlStatusArgs struct {
	CrawlID string `json:"crawlId"`
}

// registerCrawlStatusTool registers the crawl_status tool
func (s *MCPServer) registerCrawlStatusTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl_status",
		Description: "Gets lifecycle and frontier progress for a crawl by ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CrawlStatusArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: crawl_status for crawl ID: %s", args.CrawlID)

		st, err := s.app.Status(ctx, args.CrawlID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get crawl status: %w", err)
		}

		statusJSON, _ := json.MarshalIndent(st, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Crawl status:\n%s", string(statusJSON)),
				},
			},
		}, st, nil
	})
}

// registerListCrawlsTool registers the list_crawls tool
func (s *MCPServer) registerListCrawlsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_crawls",
		Description: "Lists all crawls, newest first, with their lifecycle state",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: list_crawls")

		crawls, err := s.app.ListCrawls(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list crawls: %w", err)
		}

		result := map[string]interface{}{
			"crawls": crawls,
		}
		crawlsJSON, _ := json.MarshalIndent(result, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Found %d crawls:\n%s", len(crawls), string(crawlsJSON)),
				},
			},
		}, result, nil
	})
}
