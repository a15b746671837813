package parcel

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hitoshi/parcelman/internal/model"
)

// DefaultFilterLimit はfilter操作の返却件数上限のデフォルト値。
const DefaultFilterLimit = 5

// ParcelAPI は荷物データ取得のインターフェース。
// dhl.Clientが実装する。
type ParcelAPI interface {
	// ListParcels は荷物コレクションを取得する。
	ListParcels(ctx context.Context) ([]model.Parcel, error)
	// GetUser は認証済みユーザーのプロファイルを無加工のJSONで返す。
	GetUser(ctx context.Context) (json.RawMessage, error)
}

// Service は荷物データへの問い合わせ操作を提供する。
// 荷物データはキャッシュせず、呼び出しごとに上流から取得する。
type Service struct {
	client ParcelAPI
	logger *slog.Logger

	// now は現在時刻の取得。テストで差し替え可能。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(client ParcelAPI, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// ListPayload は荷物一覧リソースのペイロード。
type ListPayload struct {
	Source  string         `json:"source"`
	Parcels []model.Parcel `json:"parcels"`
	Meta    ListMeta       `json:"meta"`
}

// ListMeta は荷物一覧のメタ情報。
type ListMeta struct {
	Count int `json:"count"`
}

// ListAll は全荷物のライブペイロードを返す。
func (s *Service) ListAll(ctx context.Context) (*ListPayload, error) {
	parcels, err := s.client.ListParcels(ctx)
	if err != nil {
		return nil, err
	}

	return &ListPayload{
		Source:  "live",
		Parcels: parcels,
		Meta:    ListMeta{Count: len(parcels)},
	}, nil
}

// GetProfile は認証済みユーザーのプロファイルを無加工で返す。
func (s *Service) GetProfile(ctx context.Context) (json.RawMessage, error) {
	return s.client.GetUser(ctx)
}

// GetSummary は識別子（荷物IDまたはバーコード）で荷物を1件解決し、サマリーを返す。
// 見つからない場合はPARCEL_NOT_FOUNDのAPIErrorを返す。
// これはシステム障害ではなく検索ミスとして扱われる。
func (s *Service) GetSummary(ctx context.Context, identifier string) (*model.ParcelSummary, error) {
	parcels, err := s.client.ListParcels(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range parcels {
		if Matches(p, identifier) {
			summary := Summarize(p)
			return &summary, nil
		}
	}

	s.logger.Info("荷物が見つかりませんでした",
		slog.String("identifier", identifier),
		slog.Int("parcel_count", len(parcels)),
	)
	return nil, model.NewParcelNotFoundError(identifier)
}

// FilterSummaries は絞り込み条件に一致する荷物のサマリーを、
// 元の順序を保ったまま最大limit件返す。limitが負の場合は0件として扱う。
func (s *Service) FilterSummaries(ctx context.Context, f model.ParcelFilter, limit int) ([]model.ParcelSummary, error) {
	parcels, err := s.client.ListParcels(ctx)
	if err != nil {
		return nil, err
	}

	filtered := Filter(parcels, f, s.now().UTC())

	if limit < 0 {
		limit = 0
	}
	if limit < len(filtered) {
		filtered = filtered[:limit]
	}

	out := make([]model.ParcelSummary, 0, len(filtered))
	for _, p := range filtered {
		out = append(out, Summarize(p))
	}
	return out, nil
}
