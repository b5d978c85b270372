package contracts

import "sort"

// Asset is a human-readable instrument name (e.g. "SPX", "Gold")
type Asset string

// String returns the asset name
func (a Asset) String() string {
	return string(a)
}

// 추적 대상 자산 (순서 자체가 계약의 일부)
// ⭐ SSOT: 피처 테이블과 모델의 자산 순서는 이 목록을 따른다
const (
	AssetSPX       Asset = "SPX"
	AssetNDX       Asset = "NDX"
	AssetEuroStoxx Asset = "EuroStoxx 50"
	AssetNikkei    Asset = "Nikkei 225"
	AssetUS10Y     Asset = "US 10Y yield"
	AssetGerman10Y Asset = "German 10Y yield"
	AssetEURUSD    Asset = "EURUSD"
	AssetUSDJPY    Asset = "USDJPY"
	AssetVIX       Asset = "VIX"
	AssetGold      Asset = "Gold"
)

// CanonicalAssets is the fixed, ordered set of tracked instruments
var CanonicalAssets = []Asset{
	AssetSPX,
	AssetNDX,
	AssetEuroStoxx,
	AssetNikkei,
	AssetUS10Y,
	AssetGerman10Y,
	AssetEURUSD,
	AssetUSDJPY,
	AssetVIX,
	AssetGold,
}

// AssetTickers maps each canonical asset to its market data vendor ticker
var AssetTickers = map[Asset]string{
	AssetSPX:       "^GSPC",
	AssetNDX:       "^NDX",
	AssetEuroStoxx: "^STOXX50E",
	AssetNikkei:    "^N225",
	AssetUS10Y:     "^TNX",
	AssetGerman10Y: "DE10YBOND=X",
	AssetEURUSD:    "EURUSD=X",
	AssetUSDJPY:    "JPY=X",
	AssetVIX:       "^VIX",
	AssetGold:      "GC=F",
}

// AssetIndex returns the canonical position of the asset, or -1 if untracked
func AssetIndex(a Asset) int {
	for i, c := range CanonicalAssets {
		if c == a {
			return i
		}
	}
	return -1
}

// IsCanonical reports whether the asset belongs to the tracked set
func IsCanonical(a Asset) bool {
	return AssetIndex(a) >= 0
}

// AssetByTicker resolves a vendor ticker back to its asset name
func AssetByTicker(ticker string) (Asset, bool) {
	for asset, t := range AssetTickers {
		if t == ticker {
			return asset, true
		}
	}
	return "", false
}

// SortAssets orders assets canonically; untracked assets follow, sorted by name.
// The input slice is sorted in place.
func SortAssets(assets []Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return AssetLess(assets[i], assets[j])
	})
}

// AssetLess is the canonical-then-name ordering used for columns and rows
func AssetLess(a, b Asset) bool {
	ia, ib := AssetIndex(a), AssetIndex(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	default:
		return a < b
	}
}
