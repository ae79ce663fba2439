package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/presentation/graph"
	"github.com/aretw0/cohort/internal/presentation/report"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/model"
	"github.com/aretw0/cohort/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RunResponse is the structured result of the run_model tool.
type RunResponse struct {
	ID     string             `json:"id" jsonschema_description:"Identifier of the stored run"`
	Model  string             `json:"model" jsonschema_description:"Model name"`
	Totals map[string]float64 `json:"totals" jsonschema_description:"Discounted total of every variable"`
	Report string             `json:"report" jsonschema_description:"Result tables in the requested format"`
}

// ValidateResponse is the structured result of the validate_model tool.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Model  string   `json:"model"`
	States []string `json:"states,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Server wraps a Runner and exposes it as an MCP Server.
type Server struct {
	runner    *runner.Runner
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(r *runner.Runner) *Server {
	s := &Server{
		runner:    r,
		mcpServer: server.NewMCPServer("cohort-mcp", strings.TrimSpace(cohort.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: run_model
	runTool := mcp.NewTool("run_model",
		mcp.WithDescription("Run a Markov cohort model and return its discounted totals and result tables."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model document (YAML or JSON)")),
		mcp.WithString("format", mcp.Description("Document format: yaml (default) or json")),
		mcp.WithNumber("seed", mcp.Description("Sample the parameters with this seed (optional)")),
		mcp.WithString("output", mcp.Description("Report format: markdown (default), csv or json")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunModel))

	// TOOL: validate_model
	validateTool := mcp.NewTool("validate_model",
		mcp.WithDescription("Build and verify a model without running it."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model document (YAML or JSON)")),
		mcp.WithString("format", mcp.Description("Document format: yaml (default) or json")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidateModel))

	// TOOL: graph_model
	s.mcpServer.AddTool(mcp.NewTool("graph_model",
		mcp.WithDescription("Render the model tree as a Mermaid flowchart."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model document (YAML or JSON)")),
		mcp.WithString("format", mcp.Description("Document format: yaml (default) or json")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chart, err := s.graphModel(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(chart), nil
	})
}

func parseModel(args map[string]any) (*model.Definition, error) {
	doc, _ := args["model"].(string)
	if strings.TrimSpace(doc) == "" {
		return nil, errors.New("model is required")
	}
	format := model.FormatYAML
	if f, _ := args["format"].(string); strings.EqualFold(f, "json") {
		format = model.FormatJSON
	}
	return model.Parse([]byte(doc), format)
}

func (s *Server) handleRunModel(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	def, err := parseModel(args)
	if err != nil {
		return RunResponse{}, err
	}

	var seed *uint64
	if v, ok := args["seed"].(float64); ok {
		if v < 0 {
			return RunResponse{}, fmt.Errorf("seed must be non-negative, got %g", v)
		}
		u := uint64(v)
		seed = &u
	}

	format, err := report.ParseFormat(stringArg(args, "output"))
	if err != nil {
		return RunResponse{}, err
	}

	rec, err := s.runner.Run(ctx, def, seed)
	if err != nil {
		slog.Warn("MCP run_model failed", "model", def.Name, "error", err)
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, &rec.Result); err != nil {
		return RunResponse{}, err
	}
	return RunResponse{
		ID:     rec.ID,
		Model:  rec.Model,
		Totals: rec.Result.Variables.Totals(),
		Report: buf.String(),
	}, nil
}

func (s *Server) handleValidateModel(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ValidateResponse, error) {
	def, err := parseModel(args)
	if err != nil {
		return ValidateResponse{Error: err.Error()}, nil
	}
	if _, err := s.runner.Build(def, nil); err != nil {
		return ValidateResponse{Model: def.Name, Error: err.Error()}, nil
	}
	return ValidateResponse{Valid: true, Model: def.Name, States: def.States()}, nil
}

func (s *Server) graphModel(args map[string]any) (string, error) {
	def, err := parseModel(args)
	if err != nil {
		return "", err
	}
	eng, err := s.runner.Build(def, nil)
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(eng.States(), nil), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func (s *Server) registerResources() {
	// EXPOSE: cohort://runs
	s.mcpServer.AddResource(mcp.NewResource("cohort://runs", "Stored simulation runs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.listRuns(ctx)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "cohort://runs",
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}

func (s *Server) listRuns(ctx context.Context) (string, error) {
	ids := []string{}
	if s.runner.Store != nil {
		listed, err := s.runner.Store.List(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list runs: %w", err)
		}
		ids = append(ids, listed...)
	}
	records := make([]domain.RunRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.runner.Store.Load(ctx, id)
		if err != nil {
			return "", err
		}
		// The tables can be large; the resource only lists the runs.
		rec.Result = domain.Result{}
		records = append(records, *rec)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
