package outbox

import "encoding/json"

// MergePayloads shallow-merges two JSON objects; keys from next win over
// keys already present in existing. A later mutation folding its delta into a
// still-pending event must overwrite stale values while keeping keys the new
// delta does not touch.
func MergePayloads(existing, next json.RawMessage) (json.RawMessage, error) {
	base := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, err
		}
	}
	overlay := map[string]any{}
	if len(next) > 0 {
		if err := json.Unmarshal(next, &overlay); err != nil {
			return nil, err
		}
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}

// PricePayload is the price-lane event shape.
type PricePayload struct {
	OldPrice       *string `json:"oldPrice,omitempty"`
	NewPrice       string  `json:"newPrice"`
	OldRetailPrice *string `json:"oldRetailPrice,omitempty"`
	NewRetailPrice *string `json:"newRetailPrice,omitempty"`
}

// StockPayload is the stock-lane event shape.
type StockPayload struct {
	OldInStock bool `json:"oldInStock"`
	NewInStock bool `json:"newInStock"`
}
