package mcpshell

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dicklesworth/agentmail/internal/archive"
	"github.com/dicklesworth/agentmail/internal/config"
	"github.com/dicklesworth/agentmail/internal/contact"
	"github.com/dicklesworth/agentmail/internal/eventbus"
	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/search"
	"github.com/dicklesworth/agentmail/internal/store"
)

// Deps bundles every engine the tool surface delegates to. Constructed
// once in cmd/amaild/main.go and handed to NewServer.
type Deps struct {
	Store       *store.Store
	Mail        *mail.Engine
	Reservation *reservation.Engine
	Contact     *contact.Engine
	Search      *search.Engine
	Archive     *archive.Manager
	Bus         *eventbus.Bus
	Config      config.Config
	Version     string
}

// NewServer builds the go-sdk MCP server and registers every tool name
// and resource URI from the external interface against deps.
func NewServer(deps Deps) *mcp.Server {
	impl := &mcp.Implementation{Name: "agentmail", Version: deps.Version}
	server := mcp.NewServer(impl, nil)

	h := &handlers{deps: deps}
	registerTools(server, h)
	registerResources(server, h)
	return server
}

// Run serves the given MCP server over stdio until ctx is canceled or
// the transport's input is closed.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// handlers closes over Deps for every tool/resource handler function.
type handlers struct {
	deps Deps
}
