// Package handler は荷物APIのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/parcelman/internal/dhl"
	"github.com/hitoshi/parcelman/internal/middleware"
	"github.com/hitoshi/parcelman/internal/model"
	"github.com/hitoshi/parcelman/internal/parcel"
)

// ParcelServiceInterface は荷物ハンドラーが必要とするサービスインターフェース。
type ParcelServiceInterface interface {
	// ListAll は全荷物をアップストリームの形式のまま返す。
	ListAll(ctx context.Context) (*parcel.ListPayload, error)
	// GetSummary は識別子に一致する荷物のサマリーを返す。
	GetSummary(ctx context.Context, identifier string) (*model.ParcelSummary, error)
	// FilterSummaries は条件に一致する荷物のサマリー一覧を返す。
	FilterSummaries(ctx context.Context, filter model.ParcelFilter, limit int) ([]model.ParcelSummary, error)
}

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile はユーザープロフィールをアップストリームの形式のまま返す。
	GetProfile(ctx context.Context) (json.RawMessage, error)
}

// ParcelHandler は荷物照会のHTTPハンドラー。
type ParcelHandler struct {
	service ParcelServiceInterface
}

// NewParcelHandler はParcelHandlerを生成する。
func NewParcelHandler(service ParcelServiceInterface) *ParcelHandler {
	return &ParcelHandler{service: service}
}

// ListParcels は全荷物一覧を取得する。
// GET /api/parcels
func (h *ParcelHandler) ListParcels(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

// GetParcelSummary は識別子に一致する荷物のサマリーを取得する。
// GET /api/parcels/{identifier}
func (h *ParcelHandler) GetParcelSummary(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	summary, err := h.service.GetSummary(r.Context(), identifier)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, summary)
}

// FilterParcels は条件に一致する荷物のサマリー一覧を取得する。
// GET /api/parcels/filter
//
// クエリパラメータ: status、category、delivered_within_days、returnable、limit
func (h *ParcelHandler) FilterParcels(w http.ResponseWriter, r *http.Request) {
	filter, limit, err := parseFilterQuery(r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_QUERY",
			Message:  err.Error(),
			Category: "validation",
			Action:   "クエリパラメータの形式を確認してください。",
		})
		return
	}

	summaries, err := h.service.FilterSummaries(r.Context(), filter, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, filterResponse{
		Parcels: summaries,
		Meta:    filterMeta{Count: len(summaries)},
	})
}

// filterResponse は絞り込み結果のAPIレスポンス。
type filterResponse struct {
	Parcels []model.ParcelSummary `json:"parcels"`
	Meta    filterMeta            `json:"meta"`
}

type filterMeta struct {
	Count int `json:"count"`
}

// parseFilterQuery はクエリパラメータから絞り込み条件と件数上限を解析する。
func parseFilterQuery(r *http.Request) (model.ParcelFilter, int, error) {
	q := r.URL.Query()

	filter := model.ParcelFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}

	if v := q.Get("delivered_within_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return model.ParcelFilter{}, 0, errors.New("delivered_within_daysは整数で指定してください")
		}
		filter.DeliveredWithinDays = &days
	}

	if v := q.Get("returnable"); v != "" {
		returnable, err := strconv.ParseBool(v)
		if err != nil {
			return model.ParcelFilter{}, 0, errors.New("returnableはtrueまたはfalseで指定してください")
		}
		filter.Returnable = &returnable
	}

	limit := parcel.DefaultFilterLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.ParcelFilter{}, 0, errors.New("limitは整数で指定してください")
		}
		limit = n
	}

	return filter, limit, nil
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile はユーザープロフィールを取得する。
// GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(profile)
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var upstreamErr *dhl.UpstreamError
	if errors.As(err, &upstreamErr) {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamError(upstreamErr.StatusCode))
		return
	}

	var protocolErr *dhl.ProtocolError
	if errors.As(err, &protocolErr) {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewNonJSONResponseError())
		return
	}

	var authErr *dhl.AuthenticationError
	if errors.As(err, &authErr) {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewAuthFailedError())
		return
	}

	// 型付きエラー以外は内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeParcelNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamError, model.ErrCodeNonJSONResponse, model.ErrCodeAuthFailed:
		return http.StatusBadGateway
	case model.ErrCodeConfigMissing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
