package dexscreener

import (
	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/upstream"
)

// searchResponse is the raw body of /latest/dex/search.
type searchResponse struct {
	Pairs []pairJSON `json:"pairs"`
}

// pairsResponse is the raw body of /latest/dex/pairs/{chain}/{pair}.
type pairsResponse struct {
	Pair  *pairJSON  `json:"pair"`
	Pairs []pairJSON `json:"pairs"`
}

type pairJSON struct {
	ChainID       string    `json:"chainId"`
	PairAddress   string    `json:"pairAddress"`
	PairCreatedAt int64     `json:"pairCreatedAt"`
	BaseToken     tokenJSON `json:"baseToken"`

	PriceUSD  upstream.FlexDecimal `json:"priceUsd"`
	Liquidity struct {
		USD upstream.FlexDecimal `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H1 upstream.FlexDecimal `json:"h1"`
	} `json:"volume"`
	Txns struct {
		H1 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h1"`
	} `json:"txns"`
}

type tokenJSON struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

func (p pairJSON) candidate() domain.PairCandidate {
	return domain.PairCandidate{
		PairAddress:   p.PairAddress,
		ChainID:       p.ChainID,
		PairCreatedAt: p.PairCreatedAt,
		BaseToken: domain.BaseToken{
			Address: p.BaseToken.Address,
			Symbol:  p.BaseToken.Symbol,
		},
	}
}

// snapshot normalizes a pair. Missing numeric fields read as zero.
func (p pairJSON) snapshot(requested string) *domain.MarketSnapshot {
	addr := p.PairAddress
	if addr == "" {
		addr = requested
	}
	return &domain.MarketSnapshot{
		PairAddress:  addr,
		PriceUSD:     p.PriceUSD.OrZero(),
		LiquidityUSD: p.Liquidity.USD.OrZero(),
		VolumeH1:     p.Volume.H1.OrZero(),
		BuysH1:       p.Txns.H1.Buys,
		SellsH1:      p.Txns.H1.Sells,
	}
}
