// Package tool is the capability registry and response formatter that
// exposes an Apple Books library as named tools.
//
// The package is split by concern:
//   - catalog: the fixed table of tools, their arguments and handlers
//   - registry: argument binding, dispatch and per-call observation
//   - format: list rendering ("<Kind>:" header plus one block per entity)
//   - describe: flat YAML field dumps for single entities
//   - error: ToolError codes mapped from books sentinels
//
// The package is transport-agnostic; tool/mcp binds it to an MCP server.
package tool
