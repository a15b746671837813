// Package parcel は荷物データの絞り込み、識別子解決、サマリー射影を提供する。
package parcel

import (
	"time"

	"github.com/hitoshi/parcelman/internal/model"
)

// naiveMomentLayouts はオフセット表記を持たない受取時刻のレイアウト。
// オフセットの無い時刻はUTCとして扱う。
var naiveMomentLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ReceivedAt は荷物の受取時刻をパースして返す。
// ISO-8601文字列を受け付け、末尾の"Z"はUTCオフセット"+00:00"と同義として扱う。
// 時刻が欠落またはパース不能の場合はnilを返す（エラーにしない）。
func ReceivedAt(p model.Parcel) *time.Time {
	if p.ReceivingTimeIndication == nil {
		return nil
	}
	moment := p.ReceivingTimeIndication.Moment
	if moment == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, moment); err == nil {
		return &t
	}
	for _, layout := range naiveMomentLayouts {
		if t, err := time.ParseInLocation(layout, moment, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// Matches は識別子が荷物のparcelIdまたはbarcodeのいずれかと一致するかを返す。
// どちらのフィールドで一致したかを呼び出し元が仮定してはならない。
// 空の識別子は（フィールドが欠落した荷物とも）一致しない。
func Matches(p model.Parcel, identifier string) bool {
	if identifier == "" {
		return false
	}
	return identifier == p.ParcelID || identifier == p.Barcode
}

// Filter は荷物列に絞り込み条件を適用し、元の相対順序を保った部分列を返す。
// 純粋関数であり、入力を変更しない。全条件が未指定の場合は全件を返す。
//
// 条件の意味論:
//   - Status/Category: フィールドとの完全一致。未指定は制約なし。
//   - Returnable: 真偽値の厳密一致。フィールドが欠落した荷物は条件指定時に除外される。
//   - DeliveredWithinDays=N: now−N日をカットオフとし、受取時刻が存在して
//     パースに成功し、カットオフ以降である荷物のみ含める。
//     受取時刻が欠落またはパース不能の荷物は条件指定時に除外される。
//
// 有効な条件はすべてANDで結合される。
func Filter(parcels []model.Parcel, f model.ParcelFilter, now time.Time) []model.Parcel {
	var cutoff *time.Time
	if f.DeliveredWithinDays != nil {
		c := now.Add(-time.Duration(*f.DeliveredWithinDays) * 24 * time.Hour)
		cutoff = &c
	}

	out := make([]model.Parcel, 0, len(parcels))
	for _, p := range parcels {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Returnable != nil && (p.Returnable == nil || *p.Returnable != *f.Returnable) {
			continue
		}
		if cutoff != nil {
			receivedAt := ReceivedAt(p)
			if receivedAt == nil || receivedAt.Before(*cutoff) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
