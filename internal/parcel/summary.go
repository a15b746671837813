package parcel

import "github.com/hitoshi/parcelman/internal/model"

// deliveredAtLayout はサマリー内の受取時刻の出力形式。
// UTCでも"Z"ではなく数値オフセット（+00:00）で表記する。
const deliveredAtLayout = "2006-01-02T15:04:05.999999999-07:00"

// Summarize は荷物レコードを安定形のサマリーへ射影する。
// 決定的な純粋関数であり、呼び出しごとに新しく計算される。
// destination/addressサブ構造が欠落していてもエラーにはならず、
// 該当フィールドはnullのままになる。
func Summarize(p model.Parcel) model.ParcelSummary {
	s := model.ParcelSummary{
		ParcelID:   p.ParcelID,
		Barcode:    p.Barcode,
		Status:     p.Status,
		Category:   p.Category,
		Returnable: p.Returnable,
	}

	if t := ReceivedAt(p); t != nil {
		formatted := t.Format(deliveredAtLayout)
		s.DeliveredAt = &formatted
	}

	if p.Destination != nil && p.Destination.Address != nil {
		a := p.Destination.Address
		s.Destination = model.SummaryDestination{
			PostalCode:  a.PostalCode,
			City:        a.City,
			Street:      a.Street,
			HouseNumber: a.HouseNumber,
		}
	}

	return s
}
