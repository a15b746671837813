// Package model はドメインモデルを定義する。
package model

import "encoding/json"

// Parcel はDHL APIから取得した荷物レコードを表す。
// 上流APIが所有する外部エンティティであり、このレイヤーでは読み取り専用として扱う。
// 欠落しうるフィールドはポインタで表現し、欠落（null）と明示的な値を区別する。
type Parcel struct {
	ParcelID                string                   `json:"parcelId"`
	Barcode                 string                   `json:"barcode"`
	Status                  string                   `json:"status"`
	Category                string                   `json:"category"`
	Returnable              *bool                    `json:"returnable"`
	ReceivingTimeIndication *ReceivingTimeIndication `json:"receivingTimeIndication"`
	Destination             *Destination             `json:"destination"`

	// Raw は上流APIのJSONレコードそのもの。
	// 一覧リソースは上流ペイロードを無加工のまま返すため、デコード時に保持する。
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON は既知フィールドをデコードしつつ、元のJSONレコードを保持する。
func (p *Parcel) UnmarshalJSON(data []byte) error {
	type alias Parcel
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Parcel(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON は保持している上流レコードがあればそれをそのまま返す。
func (p Parcel) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type alias Parcel
	return json.Marshal(alias(p))
}

// ReceivingTimeIndication は荷物の受取時刻情報を表す。
type ReceivingTimeIndication struct {
	Moment string `json:"moment"`
}

// Destination は荷物の配送先を表す。
type Destination struct {
	Address *Address `json:"address"`
}

// Address は配送先住所を表す。
// DHL APIは番地を "12a" のような文字列で返すため、全フィールドを文字列として扱う。
type Address struct {
	PostalCode  *string `json:"postalCode"`
	City        *string `json:"city"`
	Street      *string `json:"street"`
	HouseNumber *string `json:"houseNumber"`
}

// ParcelSummary は荷物の縮約済みサマリー。外部公開用の安定形であり、
// 呼び出しごとに新しく計算される（キャッシュしない）。
type ParcelSummary struct {
	ParcelID string `json:"parcelId"`
	Barcode  string `json:"barcode"`
	Status   string `json:"status"`
	Category string `json:"category"`
	// DeliveredAt は受取時刻をUTCオフセット付きISO-8601文字列に正規化したもの。
	// 受取時刻が欠落またはパース不能の場合はnull。
	DeliveredAt *string            `json:"deliveredAt"`
	Returnable  *bool              `json:"returnable"`
	Destination SummaryDestination `json:"destination"`
}

// SummaryDestination はサマリー内の平坦化された配送先。
// 元レコードにdestination/addressサブ構造が無い場合は全フィールドがnullになる。
type SummaryDestination struct {
	PostalCode  *string `json:"postalCode"`
	City        *string `json:"city"`
	Street      *string `json:"street"`
	HouseNumber *string `json:"houseNumber"`
}

// ParcelFilter は荷物一覧の絞り込み条件。ゼロ値は「絞り込みなし」を意味する。
// 各条件は独立に任意指定であり、指定された条件はANDで結合される。
type ParcelFilter struct {
	// Status は荷物のステータスとの完全一致を要求する。空文字列は条件なし。
	Status string
	// Category は荷物のカテゴリとの完全一致を要求する。空文字列は条件なし。
	Category string
	// DeliveredWithinDays は「現在時刻からN日以内に受け取った荷物」に限定する。
	// nilは条件なし。
	DeliveredWithinDays *int
	// Returnable は返送可否との厳密な真偽値一致を要求する。
	// nilは条件なし。フィールドが欠落している荷物は条件指定時に除外される。
	Returnable *bool
}

// IsZero は絞り込み条件が1つも指定されていないかを返す。
func (f ParcelFilter) IsZero() bool {
	return f.Status == "" && f.Category == "" && f.DeliveredWithinDays == nil && f.Returnable == nil
}
