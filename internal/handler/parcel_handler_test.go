package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/parcelman/internal/dhl"
	"github.com/hitoshi/parcelman/internal/model"
	"github.com/hitoshi/parcelman/internal/parcel"
)

// stubParcelService はParcelServiceInterfaceのテスト用スタブ。
type stubParcelService struct {
	listPayload *parcel.ListPayload
	summary     *model.ParcelSummary
	summaries   []model.ParcelSummary
	err         error

	gotIdentifier string
	gotFilter     model.ParcelFilter
	gotLimit      int
}

func (s *stubParcelService) ListAll(ctx context.Context) (*parcel.ListPayload, error) {
	return s.listPayload, s.err
}

func (s *stubParcelService) GetSummary(ctx context.Context, identifier string) (*model.ParcelSummary, error) {
	s.gotIdentifier = identifier
	return s.summary, s.err
}

func (s *stubParcelService) FilterSummaries(ctx context.Context, filter model.ParcelFilter, limit int) ([]model.ParcelSummary, error) {
	s.gotFilter = filter
	s.gotLimit = limit
	return s.summaries, s.err
}

// stubUserService はUserServiceInterfaceのテスト用スタブ。
type stubUserService struct {
	profile json.RawMessage
	err     error
}

func (s *stubUserService) GetProfile(ctx context.Context) (json.RawMessage, error) {
	return s.profile, s.err
}

// newParcelRouter はハンドラーをchiルーターに載せたテスト用ルーターを返す。
func newParcelRouter(h *ParcelHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/parcels", h.ListParcels)
	r.Get("/api/parcels/filter", h.FilterParcels)
	r.Get("/api/parcels/{identifier}", h.GetParcelSummary)
	return r
}

func TestListParcels_ReturnsPayload(t *testing.T) {
	service := &stubParcelService{
		listPayload: &parcel.ListPayload{
			Source:  "live",
			Parcels: []model.Parcel{{ParcelID: "p-1"}},
			Meta:    parcel.ListMeta{Count: 1},
		},
	}
	router := newParcelRouter(NewParcelHandler(service))

	req := httptest.NewRequest(http.MethodGet, "/api/parcels", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["source"] != "live" {
		t.Errorf("source = %v, want live", body["source"])
	}
	meta, ok := body["meta"].(map[string]any)
	if !ok || meta["count"] != float64(1) {
		t.Errorf("meta = %v, want count 1", body["meta"])
	}
}

func TestGetParcelSummary_PassesIdentifier(t *testing.T) {
	service := &stubParcelService{
		summary: &model.ParcelSummary{ParcelID: "p-1", Barcode: "3S1", Status: "DELIVERED"},
	}
	router := newParcelRouter(NewParcelHandler(service))

	req := httptest.NewRequest(http.MethodGet, "/api/parcels/3S1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if service.gotIdentifier != "3S1" {
		t.Errorf("identifier = %q, want %q", service.gotIdentifier, "3S1")
	}

	var summary model.ParcelSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.ParcelID != "p-1" {
		t.Errorf("parcelId = %q, want %q", summary.ParcelID, "p-1")
	}
}

func TestGetParcelSummary_NotFound(t *testing.T) {
	service := &stubParcelService{err: model.NewParcelNotFoundError("unknown")}
	router := newParcelRouter(NewParcelHandler(service))

	req := httptest.NewRequest(http.MethodGet, "/api/parcels/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != model.ErrCodeParcelNotFound {
		t.Errorf("code = %v, want %v", body["code"], model.ErrCodeParcelNotFound)
	}
}

func TestFilterParcels_ParsesQuery(t *testing.T) {
	service := &stubParcelService{summaries: []model.ParcelSummary{}}
	router := newParcelRouter(NewParcelHandler(service))

	req := httptest.NewRequest(http.MethodGet,
		"/api/parcels/filter?status=DELIVERED&category=letterbox&delivered_within_days=7&returnable=true&limit=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if service.gotFilter.Status != "DELIVERED" {
		t.Errorf("status = %q, want DELIVERED", service.gotFilter.Status)
	}
	if service.gotFilter.Category != "letterbox" {
		t.Errorf("category = %q, want letterbox", service.gotFilter.Category)
	}
	if service.gotFilter.DeliveredWithinDays == nil || *service.gotFilter.DeliveredWithinDays != 7 {
		t.Errorf("delivered_within_days = %v, want 7", service.gotFilter.DeliveredWithinDays)
	}
	if service.gotFilter.Returnable == nil || !*service.gotFilter.Returnable {
		t.Errorf("returnable = %v, want true", service.gotFilter.Returnable)
	}
	if service.gotLimit != 3 {
		t.Errorf("limit = %d, want 3", service.gotLimit)
	}
}

func TestFilterParcels_DefaultLimit(t *testing.T) {
	service := &stubParcelService{summaries: []model.ParcelSummary{}}
	router := newParcelRouter(NewParcelHandler(service))

	req := httptest.NewRequest(http.MethodGet, "/api/parcels/filter", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if service.gotLimit != parcel.DefaultFilterLimit {
		t.Errorf("limit = %d, want %d", service.gotLimit, parcel.DefaultFilterLimit)
	}
	if !service.gotFilter.IsZero() {
		t.Errorf("filter = %+v, want zero value", service.gotFilter)
	}
}

func TestFilterParcels_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "delivered_within_daysが整数でない", query: "delivered_within_days=abc"},
		{name: "returnableが真偽値でない", query: "returnable=maybe"},
		{name: "limitが整数でない", query: "limit=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubParcelService{}
			router := newParcelRouter(NewParcelHandler(service))

			req := httptest.NewRequest(http.MethodGet, "/api/parcels/filter?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["code"] != "INVALID_QUERY" {
				t.Errorf("code = %v, want INVALID_QUERY", body["code"])
			}
		})
	}
}

func TestGetProfile_RawPassthrough(t *testing.T) {
	raw := json.RawMessage(`{"email":"user@example.com","accountNumbers":[1,2]}`)
	h := NewUserHandler(&stubUserService{profile: raw})

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	rec := httptest.NewRecorder()
	h.GetProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != string(raw) {
		t.Errorf("body = %s, want %s", rec.Body.String(), raw)
	}
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "アップストリームエラーは502",
			err:        &dhl.UpstreamError{StatusCode: 503, Body: "unavailable"},
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeUpstreamError,
		},
		{
			name:       "非JSONレスポンスは502",
			err:        &dhl.ProtocolError{Reason: "invalid JSON"},
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeNonJSONResponse,
		},
		{
			name:       "認証失敗は502",
			err:        &dhl.AuthenticationError{Reason: "empty login response"},
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeAuthFailed,
		},
		{
			name:       "設定不足は500",
			err:        model.NewConfigMissingError([]string{"DHL_USERNAME"}),
			wantStatus: http.StatusInternalServerError,
			wantCode:   model.ErrCodeConfigMissing,
		},
		{
			name:       "型付きでないエラーは500",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %v", body["code"], tt.wantCode)
			}
		})
	}
}
