package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/detrace/detrace/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes detrace's strip
pass as tools that LLMs can invoke. This lets AI assistants preview and
apply instrumentation-module removal across a codebase.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "detrace": {
        "command": "detrace",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - strip_dry_run   Plan edits without touching any file
  - strip_apply     Rewrite files in place
  - scan_targets    List the files a strip run would consider`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the MCP server manifest (server.json) and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	server := mcpserver.NewServer(version)
	return server.Run(context.Background())
}
