// Package mcp exposes the rating calculator as Model Context Protocol tools so
// assistants can rate extracted report data directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/history"
)

// Tool names
const (
	ToolCalculateRating    = "calculate_rating"
	ToolLookupOccupation   = "lookup_occupation"
	ToolDescribeImpairment = "describe_impairment"
	ToolListHistory        = "list_rating_history"
)

// ServerName identifies this server to MCP clients
const ServerName = "pdr-rating-server"

// Calculator is the subset of the rating engine the tools call into
type Calculator interface {
	CalculateRating(ctx context.Context, input *domain.RatingInput) (*domain.RatingResult, error)
	ResolveOccupation(ctx context.Context, title string) (*domain.OccupationVariant, error)
	DescribeImpairment(ctx context.Context, code string) (*domain.ImpairmentDescription, error)
}

// Server wraps an MCP server with the rating tools registered
type Server struct {
	mcpServer  *mcp.Server
	calculator Calculator
	history    history.Store
	logger     *logrus.Logger
}

// Option configures optional server dependencies
type Option func(*Server)

// WithHistory saves every calculate_rating result and registers list_rating_history
func WithHistory(store history.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// NewServer creates the MCP server and registers its tools
func NewServer(calculator Calculator, version string, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		calculator: calculator,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Title:   "California PD rating calculator",
		Version: version,
	}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves a single client over stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("server", ServerName).Info("Serving MCP over stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolCalculateRating,
		Description: "Calculate a California permanent disability rating from extracted medical report data. " +
			"Arguments are the rating input plus an optional name for the source report recorded in history: demographics (dateOfBirth, dateOfInjury, occupation.title, weeklyEarnings) " +
			"and impairments (bodyPart.code, wpi, adjustments.pain.add, apportionment, futureMedial).",
	}, s.calculateRating)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolLookupOccupation,
		Description: "Resolve an occupation title to its occupational group and general variant letter.",
	}, s.lookupOccupation)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolDescribeImpairment,
		Description: "Look up the PDRS description of an impairment code such as 15.03.01.00.",
	}, s.describeImpairment)

	if s.history != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolListHistory,
			Description: "List previously calculated ratings, newest first.",
		}, s.listHistory)
	}
}

type calculateOutput struct {
	ID string `json:"id,omitempty"`
	*domain.RatingResult
}

// calculateRating takes free-form arguments so futureMedial may be either a
// boolean or an object.
func (s *Server) calculateRating(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	input, err := decodeInput(args)
	if err != nil {
		return nil, nil, s.toolError(ToolCalculateRating, err)
	}

	result, err := s.calculator.CalculateRating(ctx, &input.RatingInput)
	if err != nil {
		return nil, nil, s.toolError(ToolCalculateRating, err)
	}

	out := calculateOutput{RatingResult: result}
	if s.history != nil {
		entry, err := history.NewEntry(input.Name, &input.RatingInput, result)
		if err != nil {
			return nil, nil, s.toolError(ToolCalculateRating, err)
		}
		if err := s.history.Save(ctx, entry); err != nil {
			return nil, nil, s.toolError(ToolCalculateRating, fmt.Errorf("saving rating history: %w", err))
		}
		out.ID = entry.ID.String()
	}

	s.logger.WithFields(logrus.Fields{
		"tool":        ToolCalculateRating,
		"impairments": len(input.Impairments),
		"final":       result.FinalPercent(),
	}).Info("Rating calculated")
	return nil, out, nil
}

// OccupationArgs are the lookup_occupation arguments
type OccupationArgs struct {
	Title string `json:"title" jsonschema:"occupation title as written in the report"`
}

func (s *Server) lookupOccupation(ctx context.Context, _ *mcp.CallToolRequest, args OccupationArgs) (*mcp.CallToolResult, *domain.OccupationVariant, error) {
	variant, err := s.calculator.ResolveOccupation(ctx, args.Title)
	if err != nil {
		return nil, nil, s.toolError(ToolLookupOccupation, err)
	}
	return nil, variant, nil
}

// ImpairmentArgs are the describe_impairment arguments
type ImpairmentArgs struct {
	Code string `json:"code" jsonschema:"PDRS impairment code"`
}

func (s *Server) describeImpairment(ctx context.Context, _ *mcp.CallToolRequest, args ImpairmentArgs) (*mcp.CallToolResult, *domain.ImpairmentDescription, error) {
	desc, err := s.calculator.DescribeImpairment(ctx, args.Code)
	if err != nil {
		return nil, nil, s.toolError(ToolDescribeImpairment, err)
	}
	return nil, desc, nil
}

// HistoryArgs are the list_rating_history arguments
type HistoryArgs struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum entries to return"`
	Offset int `json:"offset,omitempty" jsonschema:"entries to skip"`
}

type historyOutput struct {
	Entries []*history.Entry `json:"entries"`
	Total   int64            `json:"total"`
}

func (s *Server) listHistory(ctx context.Context, _ *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	limit, offset := history.NormalizePage(args.Limit, args.Offset)
	entries, err := s.history.List(ctx, limit, offset)
	if err != nil {
		return nil, nil, s.toolError(ToolListHistory, err)
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, nil, s.toolError(ToolListHistory, err)
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	return nil, historyOutput{Entries: entries, Total: total}, nil
}

// toolError logs err and prefixes it with its error code so clients can tell
// bad input from missing reference data.
func (s *Server) toolError(tool string, err error) error {
	code := domain.ErrorCode(err)
	entry := s.logger.WithFields(logrus.Fields{"tool": tool, "code": code}).WithError(err)
	if code == domain.CodeInternalServer {
		entry.Error("Tool call failed")
	} else {
		entry.Warn("Tool call rejected")
	}
	return fmt.Errorf("%s: %w", code, err)
}

func decodeInput(args map[string]any) (*domain.MedicalInput, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments: %w", err)
	}
	var input domain.MedicalInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, domain.NewValidationError("arguments", err.Error(), "")
	}
	return &input, nil
}
