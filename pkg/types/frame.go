package types

// RawFrame is the union shape of one inbound wire object, before the
// Frame Decoder normalises it into a ParsedFrame variant. All numeric
// fields arrive as decimal strings on the wire.
type RawFrame struct {
	EventType    string          `json:"event_type"`
	AssetID      string          `json:"asset_id"`
	Market       string          `json:"market"`
	Asks         []RawLevel      `json:"asks"`
	Bids         []RawLevel      `json:"bids"`
	PriceChanges []RawPriceLevel `json:"price_changes"`
	Price        string          `json:"price"`
	Timestamp    int64           `json:"timestamp"`
	Hash         string          `json:"hash"`
}

// RawLevel is one book-snapshot price level.
type RawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// RawPriceLevel is one entry of the September-2025+ price_changes array.
type RawPriceLevel struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"` // "SELL" = ask, "BUY" = bid
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// FrameKind discriminates ParsedFrame variants.
type FrameKind int

const (
	FrameBookSnapshot FrameKind = iota
	FrameBookPriceChange
	FrameLastTradePrice
)

// Level is one decoded, float-parsed price level.
type Level struct {
	Price float64
	Size  float64
}

// LevelChange is one decoded single-level mutation.
type LevelChange struct {
	Price    float64
	IsAsk    bool
	Size     float64
	ServerBestBid float64
	ServerBestAsk float64
	HasServerBest bool
}

// ParsedFrame is the Frame Decoder's normalised output: exactly one of
// its variant fields is meaningful, selected by Kind.
type ParsedFrame struct {
	Kind FrameKind

	AssetID string

	// FrameBookSnapshot
	Asks []Level
	Bids []Level

	// FrameBookPriceChange
	Change LevelChange

	// FrameLastTradePrice
	TradePrice float64
}

// SubscribeFrame is the outbound initial-subscribe wire shape.
type SubscribeFrame struct {
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type"`
}

// DynamicSubscribeFrame is the outbound add-subscription wire shape.
type DynamicSubscribeFrame struct {
	AssetsIDs []string `json:"assets_ids"`
	Operation string   `json:"operation"`
}

// UnsubscribeFrame is the outbound unsubscribe wire shape.
type UnsubscribeFrame struct {
	AssetsIDs []string `json:"assets_ids"`
	Operation string   `json:"operation"`
}
