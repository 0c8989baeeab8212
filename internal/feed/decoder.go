package feed

import (
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

// parsePriceString parses a wire decimal string into a float64 via
// shopspring/decimal rather than strconv.ParseFloat, so that prices
// like "0.1" round-trip exactly before PriceKey quantizes them to the
// integer tick grid instead of drifting on the binary float parse.
func parsePriceString(s string) (float64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// maxSamplePreview bounds the truncated raw-frame sample logged on
// parse failure.
const maxSamplePreview = 500

// Decoder normalises raw feed frames into ParsedFrame variants. It is
// stateful only in its error-sampling counters; decoding itself is a
// pure function of the input bytes.
type Decoder struct {
	logger      *zap.Logger
	errorCount  atomic.Int64
}

// NewDecoder creates a Frame Decoder.
func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode parses one raw text frame — either a single JSON object or a
// JSON array of objects — into zero or more normalised ParsedFrame
// values. Unknown event types are silently dropped. Parse failures are
// counted; the first 10 and every 1000th thereafter are logged with a
// truncated sample.
func (d *Decoder) Decode(raw []byte) []types.ParsedFrame {
	var rawFrames []types.RawFrame

	if err := json.Unmarshal(raw, &rawFrames); err != nil {
		var single types.RawFrame
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			d.reportParseFailure(raw, err)
			return nil
		}
		rawFrames = []types.RawFrame{single}
	}

	out := make([]types.ParsedFrame, 0, len(rawFrames))
	for _, rf := range rawFrames {
		out = append(out, d.decodeOne(rf)...)
	}
	return out
}

func (d *Decoder) decodeOne(rf types.RawFrame) []types.ParsedFrame {
	switch rf.EventType {
	case "book":
		return []types.ParsedFrame{{
			Kind:    types.FrameBookSnapshot,
			AssetID: rf.AssetID,
			Asks:    decodeLevels(rf.Asks),
			Bids:    decodeLevels(rf.Bids),
		}}
	case "price_change":
		if len(rf.PriceChanges) == 0 {
			return nil
		}
		frames := make([]types.ParsedFrame, 0, len(rf.PriceChanges))
		for _, pc := range rf.PriceChanges {
			price, ok := parsePriceString(pc.Price)
			if !ok {
				continue
			}
			size, ok := parsePriceString(pc.Size)
			if !ok {
				continue
			}

			change := types.LevelChange{
				Price: price,
				IsAsk: pc.Side == "SELL",
				Size:  size,
			}
			if pc.BestBid != "" {
				if v, ok := parsePriceString(pc.BestBid); ok {
					change.ServerBestBid = v
					change.HasServerBest = true
				}
			}
			if pc.BestAsk != "" {
				if v, ok := parsePriceString(pc.BestAsk); ok {
					change.ServerBestAsk = v
					change.HasServerBest = true
				}
			}

			frames = append(frames, types.ParsedFrame{
				Kind:    types.FrameBookPriceChange,
				AssetID: pc.AssetID,
				Change:  change,
			})
		}
		return frames
	case "last_trade_price":
		price, ok := parsePriceString(rf.Price)
		if !ok {
			return nil
		}
		return []types.ParsedFrame{{
			Kind:       types.FrameLastTradePrice,
			AssetID:    rf.AssetID,
			TradePrice: price,
		}}
	default:
		return nil
	}
}

func decodeLevels(raw []types.RawLevel) []types.Level {
	out := make([]types.Level, 0, len(raw))
	for _, lvl := range raw {
		price, ok := parsePriceString(lvl.Price)
		if !ok {
			continue
		}
		size, ok := parsePriceString(lvl.Size)
		if !ok {
			continue
		}
		out = append(out, types.Level{Price: price, Size: size})
	}
	return out
}

func (d *Decoder) reportParseFailure(raw []byte, err error) {
	ParseErrorsTotal.Inc()
	n := d.errorCount.Add(1)

	if n > 10 && n%1000 != 0 {
		return
	}

	preview := raw
	if len(preview) > maxSamplePreview {
		preview = preview[:maxSamplePreview]
	}
	d.logger.Warn("frame-decode-failed",
		zap.Error(err),
		zap.Int64("error-count", n),
		zap.ByteString("sample", preview))
}
