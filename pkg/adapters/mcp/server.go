// Package mcp exposes Runecast to Model Context Protocol clients: tools to
// cast readings and query the journal, and the catalog as resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
)

// Resource URIs.
const (
	RunesURI   = "runecast://catalog/runes"
	SpreadsURI = "runecast://catalog/spreads"
	JournalURI = "runecast://history"
)

// Config wires the MCP server to the application.
type Config struct {
	Catalog        *catalog.Catalog
	Interpreter    ports.Interpreter
	History        *history.Service
	MachineOptions []session.Option
	Logger         *slog.Logger
	Version        string
}

// Server exposes Runecast as an MCP server.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// ReadingResult is the outcome of a cast.
type ReadingResult struct {
	Status    domain.Status            `json:"status" jsonschema_description:"interpreted, or failed when the interpreter was unavailable"`
	Mode      domain.Mode              `json:"mode"`
	Spread    string                   `json:"spread"`
	Runes     []session.ReconciledRune `json:"runes" jsonschema_description:"Drawn runes in spread order with their readings"`
	Summary   string                   `json:"summary"`
	Questions []string                 `json:"questions"`
	Degraded  bool                     `json:"degraded" jsonschema_description:"True when the text is a placeholder"`
	SavedID   string                   `json:"saved_id,omitempty" jsonschema_description:"Journal ID when the reading was saved"`
}

type castArgs struct {
	Spread string `mapstructure:"spread"`
	Mode   string `mapstructure:"mode"`
	Runes  string `mapstructure:"runes"`
	Save   bool   `mapstructure:"save"`
}

type listArgs struct {
	Limit int `mapstructure:"limit"`
}

type readingArgs struct {
	ID     string `mapstructure:"id"`
	Format string `mapstructure:"format"`
}

type pruneArgs struct {
	RetentionDays *int `mapstructure:"retention_days"`
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(cfg Config) (*Server, error) {
	if cfg.History == nil {
		return nil, errors.New("history service is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		logger:    cfg.Logger,
		mcpServer: server.NewMCPServer("runecast-mcp", strings.TrimSpace(cfg.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// ServeStdio serves on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	spreadNames := make([]string, 0)
	for _, sp := range s.cfg.Catalog.Spreads() {
		spreadNames = append(spreadNames, sp.Name)
	}

	s.mcpServer.AddTool(mcp.NewTool("cast_reading",
		mcp.WithDescription("Cast a rune reading and return its interpretation."),
		mcp.WithString("spread", mcp.Required(), mcp.Description("Spread name: "+strings.Join(spreadNames, ", "))),
		mcp.WithString("mode", mcp.Enum("virtual", "physical"), mcp.Description("virtual draws for you (default); physical records the runes you drew")),
		mcp.WithString("runes", mcp.Description("Comma-separated runes in spread order, each optionally suffixed with :reversed, e.g. \"Fehu:reversed, Gebo\". Required in physical mode.")),
		mcp.WithBoolean("save", mcp.Description("Save the reading to the journal when interpreted")),
		mcp.WithOutputSchema[ReadingResult](),
	), mcp.NewStructuredToolHandler(s.handleCast))

	s.mcpServer.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List saved readings, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of readings (default all)")),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("get_reading",
		mcp.WithDescription("Fetch one saved reading."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Reading ID")),
		mcp.WithString("format", mcp.Enum("markdown", "json"), mcp.Description("Output format (default markdown)")),
	), s.handleGetReading)

	s.mcpServer.AddTool(mcp.NewTool("analyze_history",
		mcp.WithDescription("Find recurring runes and themes across the journal. Needs at least 5 readings."),
	), mcp.NewStructuredToolHandler(s.handleAnalyze))

	s.mcpServer.AddTool(mcp.NewTool("prune_history",
		mcp.WithDescription("Delete readings older than the retention period."),
		mcp.WithNumber("retention_days", mcp.Description("Days to keep (default: configured retention; 0 keeps all)")),
	), mcp.NewStructuredToolHandler(s.handlePrune))
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleCast(ctx context.Context, _ mcp.CallToolRequest, raw map[string]any) (ReadingResult, error) {
	var args castArgs
	if err := decodeArgs(raw, &args); err != nil {
		return ReadingResult{}, err
	}
	mode := domain.ModeVirtual
	if args.Mode != "" {
		m, err := domain.ParseMode(args.Mode)
		if err != nil {
			return ReadingResult{}, err
		}
		mode = m
	}
	picks, err := session.ParsePicks(s.cfg.Catalog, args.Runes)
	if err != nil {
		return ReadingResult{}, err
	}

	opts := append([]session.Option{
		session.WithLogger(s.logger),
		session.WithRecorder(s.cfg.History),
	}, s.cfg.MachineOptions...)
	m := session.New(s.cfg.Catalog, s.cfg.Interpreter, opts...)

	snap, err := session.Cast(ctx, m, mode, args.Spread, picks)
	if err != nil {
		return ReadingResult{}, err
	}

	res := ReadingResult{
		Status:    snap.Status,
		Mode:      snap.Mode,
		Spread:    snap.Spread.Name,
		Runes:     session.Reconcile(snap.Selections, *snap.Result),
		Summary:   snap.Result.Summary,
		Questions: snap.Result.Questions,
		Degraded:  snap.Result.Degraded,
	}
	if args.Save && snap.Status == domain.StatusInterpreted {
		rec, err := m.Commit(ctx)
		if err != nil {
			return ReadingResult{}, err
		}
		res.SavedID = rec.ID
	}
	s.logger.Debug("MCP cast", "spread", res.Spread, "status", res.Status, "saved", res.SavedID != "")
	return res, nil
}

// HistoryEntry is a compact journal listing.
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Spread    string    `json:"spread"`
	Runes     []string  `json:"runes"`
	Summary   string    `json:"summary"`
}

// HistoryList wraps a listing.
type HistoryList struct {
	Total    int            `json:"total"`
	Readings []HistoryEntry `json:"readings"`
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, raw map[string]any) (HistoryList, error) {
	var args listArgs
	if err := decodeArgs(raw, &args); err != nil {
		return HistoryList{}, err
	}
	records, err := s.cfg.History.List(ctx)
	if err != nil {
		return HistoryList{}, err
	}
	out := HistoryList{Total: len(records), Readings: []HistoryEntry{}}
	if args.Limit > 0 && args.Limit < len(records) {
		records = records[:args.Limit]
	}
	for _, rec := range records {
		names := make([]string, len(rec.Runes))
		for i, r := range rec.Runes {
			names[i] = r.String()
		}
		out.Readings = append(out.Readings, HistoryEntry{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt,
			Spread:    rec.Spread.Name,
			Runes:     names,
			Summary:   rec.Interpretation.Summary,
		})
	}
	return out, nil
}

func (s *Server) handleGetReading(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args readingArgs
	if err := decodeArgs(request.GetArguments(), &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.cfg.History.Get(ctx, args.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get reading failed: %v", err)), nil
	}
	if args.Format == "json" {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(export.Markdown(rec)), nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (domain.PatternAnalysis, error) {
	return s.cfg.History.Analyze(ctx)
}

// PruneResult reports a prune.
type PruneResult struct {
	Removed       int `json:"removed"`
	RetentionDays int `json:"retention_days"`
}

func (s *Server) handlePrune(ctx context.Context, _ mcp.CallToolRequest, raw map[string]any) (PruneResult, error) {
	var args pruneArgs
	if err := decodeArgs(raw, &args); err != nil {
		return PruneResult{}, err
	}
	days := s.cfg.History.Retention()
	if args.RetentionDays != nil {
		days = *args.RetentionDays
	}
	removed, err := s.cfg.History.Prune(ctx, days)
	if err != nil {
		return PruneResult{}, err
	}
	return PruneResult{Removed: removed, RetentionDays: days}, nil
}

func (s *Server) registerResources() {
	s.addJSONResource(RunesURI, "Elder Futhark Runes", func(context.Context) (any, error) {
		return s.cfg.Catalog.Runes(), nil
	})
	s.addJSONResource(SpreadsURI, "Reading Spreads", func(context.Context) (any, error) {
		return s.cfg.Catalog.Spreads(), nil
	})

	s.mcpServer.AddResource(mcp.NewResource(JournalURI, "Reading Journal",
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.journal(ctx)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: JournalURI, MIMEType: "text/markdown", Text: text},
		}, nil
	})
}

func (s *Server) addJSONResource(uri, name string, load func(context.Context) (any, error)) {
	s.mcpServer.AddResource(mcp.NewResource(uri, name,
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func (s *Server) journal(ctx context.Context) (string, error) {
	records, err := s.cfg.History.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read journal: %w", err)
	}
	return export.HistoryMarkdown(records), nil
}
