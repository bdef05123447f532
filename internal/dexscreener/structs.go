package dexscreener

// tokensResponse is the body of GET /latest/dex/tokens/{address}.
type tokensResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []rawPair `json:"pairs"`
}

type rawPair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	URL         string     `json:"url"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   tokenRef   `json:"baseToken"`
	QuoteToken  tokenRef   `json:"quoteToken"`
	PriceNative string     `json:"priceNative"`
	PriceUsd    *string    `json:"priceUsd"`
	Volume      *windowed  `json:"volume"`
	PriceChange *windowed  `json:"priceChange"`
	Liquidity   *liquidity `json:"liquidity"`
}

type tokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// windowed holds a value per DexScreener time window. A nil field means the
// provider omitted that window.
type windowed struct {
	M5  *float64 `json:"m5"`
	H1  *float64 `json:"h1"`
	H6  *float64 `json:"h6"`
	H24 *float64 `json:"h24"`
}

type liquidity struct {
	USD   *float64 `json:"usd"`
	Base  float64  `json:"base"`
	Quote float64  `json:"quote"`
}
