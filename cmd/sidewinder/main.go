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

// Sidewinder CLI
//
// Command-line interface for the Sidewinder crawler. Crawls a site
// breadth-first through headless Chrome and saves every rendered page.
// Crawl progress lives in a durable frontier, so an interrupted crawl
// resumes without losing or repeating work.
//
// Usage:
//
//	sidewinder <command> [flags]
//
// Commands:
//
//	crawl     Run a crawl to completion
//	status    Show the state of one crawl
//	list      List all crawls, newest first
//	serve     Expose the crawler over MCP
//	version   Show version information
package main

func main() {
	Execute()
}
