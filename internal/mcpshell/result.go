package mcpshell

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// jsonResult renders v as the tool call's sole text content, the
// envelope every successful operation returns: results are JSON.
func jsonResult(v any) *mcp.CallToolResult {
	body, err := json.Marshal(v)
	if err != nil {
		return errResult(err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}}
}

// errResult renders a failed call's structured wire error as the tool
// result's text content with IsError set, so the payload round-trips
// through clients that don't surface JSON-RPC protocol-level errors.
func errResult(err error) *mcp.CallToolResult {
	we := toWireError(err)
	body, marshalErr := json.Marshal(we)
	if marshalErr != nil {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}, IsError: true}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}, IsError: true}
}
