// Package mcpserver は荷物照会をMCPリソース・ツールとして公開する。
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hitoshi/parcelman/internal/model"
	"github.com/hitoshi/parcelman/internal/parcel"
)

const (
	serverName = "DHL Parcels"

	parcelsResourceURI = "dhl://parcels"
	profileResourceURI = "dhl://user/profile"
	parcelTemplateURI  = "dhl://parcels/{identifier}"
)

// ParcelServiceInterface はMCPサーバーが必要とするサービスインターフェース。
type ParcelServiceInterface interface {
	ListAll(ctx context.Context) (*parcel.ListPayload, error)
	GetProfile(ctx context.Context) (json.RawMessage, error)
	GetSummary(ctx context.Context, identifier string) (*model.ParcelSummary, error)
	FilterSummaries(ctx context.Context, filter model.ParcelFilter, limit int) ([]model.ParcelSummary, error)
}

// Server は荷物照会のMCPサーバー。
type Server struct {
	service ParcelServiceInterface
	logger  *slog.Logger
	mcp     *server.MCPServer
}

// NewServer はリソースとツールを登録したMCPサーバーを生成する。
func NewServer(service ParcelServiceInterface, logger *slog.Logger, version string) *Server {
	s := &Server{
		service: service,
		logger:  logger,
	}

	m := server.NewMCPServer(serverName, version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
	)

	m.AddResource(
		mcp.NewResource(parcelsResourceURI, "All parcels",
			mcp.WithResourceDescription("受取人の全荷物をアップストリームの形式のまま返す"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleParcelsResource,
	)

	m.AddResource(
		mcp.NewResource(profileResourceURI, "User profile",
			mcp.WithResourceDescription("ログイン中ユーザーのプロフィールを返す"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleProfileResource,
	)

	m.AddResourceTemplate(
		mcp.NewResourceTemplate(parcelTemplateURI, "Parcel summary",
			mcp.WithTemplateDescription("parcelIdまたはbarcodeに一致する荷物のサマリーを返す"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleParcelSummaryResource,
	)

	m.AddTool(
		mcp.NewTool("filter_parcels",
			mcp.WithDescription("条件に一致する荷物のサマリー一覧を返す"),
			mcp.WithString("status", mcp.Description("配送ステータスの完全一致")),
			mcp.WithString("category", mcp.Description("荷物カテゴリの完全一致")),
			mcp.WithNumber("delivered_within_days", mcp.Description("直近N日以内に受け取った荷物に限定する")),
			mcp.WithBoolean("returnable", mcp.Description("返送可否の一致")),
			mcp.WithNumber("limit", mcp.Description("返却する最大件数"), mcp.DefaultNumber(parcel.DefaultFilterLimit)),
		),
		s.handleFilterParcelsTool,
	)

	m.AddTool(
		mcp.NewTool("parcel_summary",
			mcp.WithDescription("識別子に一致する荷物のサマリーを返す"),
			mcp.WithString("identifier", mcp.Required(), mcp.Description("parcelIdまたはbarcode")),
		),
		s.handleParcelSummaryTool,
	)

	s.mcp = m
	return s
}

// ServeStdio は標準入出力でMCPサーバーを起動する。
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// handleParcelsResource はdhl://parcelsリソースの読み取りを処理する。
func (s *Server) handleParcelsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload, err := s.service.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, payload)
}

// handleProfileResource はdhl://user/profileリソースの読み取りを処理する。
func (s *Server) handleProfileResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	profile, err := s.service.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(profile),
		},
	}, nil
}

// handleParcelSummaryResource はdhl://parcels/{identifier}リソースの読み取りを処理する。
func (s *Server) handleParcelSummaryResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	identifier := strings.TrimPrefix(request.Params.URI, "dhl://parcels/")

	summary, err := s.service.GetSummary(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(request.Params.URI, summary)
}

// handleFilterParcelsTool はfilter_parcelsツールの呼び出しを処理する。
func (s *Server) handleFilterParcelsTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filter := model.ParcelFilter{
		Status:   stringArg(args, "status"),
		Category: stringArg(args, "category"),
	}
	if days, ok := intArg(args, "delivered_within_days"); ok {
		filter.DeliveredWithinDays = &days
	}
	if returnable, ok := boolArg(args, "returnable"); ok {
		filter.Returnable = &returnable
	}

	limit := parcel.DefaultFilterLimit
	if n, ok := intArg(args, "limit"); ok {
		limit = n
	}

	summaries, err := s.service.FilterSummaries(ctx, filter, limit)
	if err != nil {
		s.logger.Error("filter_parcels failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonToolResult(summaries)
}

// handleParcelSummaryTool はparcel_summaryツールの呼び出しを処理する。
func (s *Server) handleParcelSummaryTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier, err := request.RequireString("identifier")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.service.GetSummary(ctx, identifier)
	if err != nil {
		s.logger.Error("parcel_summary failed",
			slog.String("identifier", identifier),
			slog.String("error", err.Error()),
		)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonToolResult(summary)
}

// jsonResourceContents は値をJSONにエンコードしてリソースコンテンツとして返す。
func jsonResourceContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// jsonToolResult は値をJSONにエンコードしてツール結果として返す。
func jsonToolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringArg は引数マップから文字列を取り出す。未指定または型不一致は空文字を返す。
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg は引数マップから整数を取り出す。JSON数値はfloat64でデコードされる。
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// boolArg は引数マップから真偽値を取り出す。
func boolArg(args map[string]any, key string) (bool, bool) {
	if v, ok := args[key].(bool); ok {
		return v, true
	}
	return false, false
}
