package venues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wingman/app/config"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/tools"
)

const initTimeout = time.Minute

var _ do.Shutdownable = (*Service)(nil)

type mcpClientWrapper struct {
	client client.MCPClient
	tools  []tools.Tool
	name   string
}

// Service exposes place-lookup tools from configured MCP servers. With no
// servers configured it is inert and Suggest returns nothing.
type Service struct {
	cfg     *config.Config
	clients []*mcpClientWrapper
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg: do.MustInvoke[*config.Config](di),
	}

	if err := s.initializeMCPClients(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initializeMCPClients() error {
	for _, server := range s.cfg.Venues.Servers {
		mcpClient, err := client.NewStdioMCPClient(server.Command, nil, server.Args...)
		if err != nil {
			return fmt.Errorf("failed to create MCP client for %s: %w", server.Name, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()

		initRequest := mcp.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcp.Implementation{
			Name:    "wingman-venues",
			Version: "1.0.0",
		}

		if _, err = mcpClient.Initialize(ctx, initRequest); err != nil {
			return fmt.Errorf("failed to initialize MCP client %s: %w", server.Name, err)
		}

		toolsResponse, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return fmt.Errorf("failed to list tools from %s: %w", server.Name, err)
		}

		serverTools := make([]tools.Tool, 0, len(toolsResponse.Tools))
		for _, mcpTool := range toolsResponse.Tools {
			serverTools = append(serverTools, &mcpToolAdapter{
				client: mcpClient,
				tool:   mcpTool,
				name:   fmt.Sprintf("%s_%s", server.Name, mcpTool.Name),
			})
		}

		s.clients = append(s.clients, &mcpClientWrapper{
			client: mcpClient,
			tools:  serverTools,
			name:   server.Name,
		})

		slog.Info("Connected venue tool server", "name", server.Name, "tools", len(serverTools))
	}

	return nil
}

// Suggest asks the first available lookup tool for venues of the given type
// and returns their names.
func (s *Service) Suggest(ctx context.Context, venueType string) ([]string, error) {
	tool := s.lookupTool()
	if tool == nil {
		return nil, nil
	}

	input, _ := json.Marshal(map[string]any{"venue_type": venueType})

	output, err := tool.Call(ctx, string(input))
	if err != nil {
		return nil, fmt.Errorf("venue lookup: %w", err)
	}

	return parseSuggestions(output), nil
}

// lookupTool prefers a tool named like "lookup_places", falling back to the
// first tool any server offers.
func (s *Service) lookupTool() tools.Tool {
	var fallback tools.Tool

	for _, wrapper := range s.clients {
		for _, tool := range wrapper.tools {
			if strings.Contains(tool.Name(), "lookup_places") {
				return tool
			}
			if fallback == nil {
				fallback = tool
			}
		}
	}

	return fallback
}

func parseSuggestions(output string) []string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(trimmed), &names); err == nil {
		return names
	}

	var result []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}

	return result
}

func (s *Service) Shutdown() error {
	var errs []error

	for _, wrapper := range s.clients {
		if err := wrapper.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", wrapper.name, err))
		}
	}

	return errors.Join(errs...)
}
