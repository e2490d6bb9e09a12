// Package mac is the backend of the Manage Apple Containers desktop shell.
package mac

// Version is the application version reported by the CLI and the MCP server.
const Version = "0.1.0"
