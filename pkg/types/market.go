package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Market is an immutable record of a binary prediction market, as
// surfaced by the Universe Fetcher or the Pinned-Market Watcher.
type Market struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Closed      bool      `json:"closed"`
	Active      bool      `json:"active"`
	Tokens      []Token   `json:"-"` // populated from Outcomes + ClobTokens
	CreatedAt   time.Time `json:"createdAt"`
	EndDate     time.Time `json:"endDate"` // optional ISO expiry; zero value means none
	Description string    `json:"description"`
	Outcomes    string    `json:"outcomes"`     // JSON string, e.g. "[\"Yes\",\"No\"]"
	ClobTokens  string    `json:"clobTokenIds"` // JSON string, e.g. "[\"123\",\"456\"]"
	Volume24hr  float64   `json:"volume24hr"`
	Liquidity   float64   `json:"liquidity"`
}

// UnmarshalJSON parses Outcomes/ClobTokens JSON-string fields into Tokens.
func (m *Market) UnmarshalJSON(data []byte) error {
	type alias Market
	aux := &struct{ *alias }{alias: (*alias)(m)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if m.Outcomes == "" || m.ClobTokens == "" {
		return nil
	}

	var outcomes []string
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(m.ClobTokens), &tokenIDs); err != nil {
		return nil
	}

	m.Tokens = make([]Token, 0, len(outcomes))
	for i, outcome := range outcomes {
		if i < len(tokenIDs) {
			m.Tokens = append(m.Tokens, Token{TokenID: tokenIDs[i], Outcome: outcome})
		}
	}

	return nil
}

// Token is one outcome leg of a market (its YES or NO side).
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

var yesLabels = map[string]bool{"yes": true, "up": true}
var noLabels = map[string]bool{"no": true, "down": true}

// YesNoTokens resolves a market's two outcomes to (yesTokenID, noTokenID).
// Recognised labels are {"Yes","Up"} and {"No","Down"}, case-insensitive.
// If one side is recognised, the other token takes the remaining side.
// Only when neither label is recognised does it fall back to positional
// assignment: index 0 -> yes, index 1 -> no.
// When Tokens is empty (a Market not built by UnmarshalJSON), the
// Outcomes/ClobTokens strings are parsed the same way UnmarshalJSON does.
func (m *Market) YesNoTokens() (yesToken, noToken string, ok bool) {
	tokens := m.Tokens
	if len(tokens) == 0 && m.Outcomes != "" && m.ClobTokens != "" {
		var outcomes, tokenIDs []string
		if json.Unmarshal([]byte(m.Outcomes), &outcomes) == nil && json.Unmarshal([]byte(m.ClobTokens), &tokenIDs) == nil {
			for i, outcome := range outcomes {
				if i < len(tokenIDs) {
					tokens = append(tokens, Token{TokenID: tokenIDs[i], Outcome: outcome})
				}
			}
		}
	}
	if len(tokens) != 2 {
		return "", "", false
	}

	a, b := tokens[0], tokens[1]
	aLabel := strings.ToLower(strings.TrimSpace(a.Outcome))
	bLabel := strings.ToLower(strings.TrimSpace(b.Outcome))

	switch {
	case yesLabels[aLabel]:
		return a.TokenID, b.TokenID, true
	case noLabels[aLabel]:
		return b.TokenID, a.TokenID, true
	case yesLabels[bLabel]:
		return b.TokenID, a.TokenID, true
	case noLabels[bLabel]:
		return a.TokenID, b.TokenID, true
	default:
		return a.TokenID, b.TokenID, true
	}
}

// MarketsResponse is the catalog listing response shape.
type MarketsResponse struct {
	Data     []Market `json:"data"`
	Count    int      `json:"count"`
	NextPage string   `json:"next_page,omitempty"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}
