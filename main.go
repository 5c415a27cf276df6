// Command mcpwatch is a transparent MCP proxy that rebuilds and restarts a
// locally-developed MCP server on file change, keeping the client's stdio
// session alive across restarts.
package main

import "github.com/cordwainer/mcpwatch/cmd"

func main() {
	cmd.Execute()
}
