package types

import "encoding/json"

// History record kinds, one per pipeline stage.
const (
	RecordKindFeatures     = "features"
	RecordKindCompose      = "compose"
	RecordKindInstructions = "instructions"
	RecordKindExecution    = "execution"
)

// HistoryRecord is an append-only audit entry. Immutable once written.
type HistoryRecord struct {
	Ts          int64          `json:"ts"`
	Kind        string         `json:"kind"`
	ReferenceID string         `json:"reference_id"`
	Payload     map[string]any `json:"payload"`
}

// ExecutionRecord builds the execution-kind record for a compose cycle.
// Trades are embedded in the payload so the digest builder can rebuild
// per-instrument stats purely from persisted history.
func ExecutionRecord(ts int64, composeID string, trades []Trade) HistoryRecord {
	return HistoryRecord{
		Ts:          ts,
		Kind:        RecordKindExecution,
		ReferenceID: composeID,
		Payload:     map[string]any{"trades": trades},
	}
}

// TradesFromPayload extracts the trade list from an execution record
// payload, tolerating both typed and decoded-from-JSON shapes.
func TradesFromPayload(payload map[string]any) []Trade {
	raw, ok := payload["trades"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []Trade:
		return v
	case []any:
		buf, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var trades []Trade
		if err := json.Unmarshal(buf, &trades); err != nil {
			return nil
		}
		return trades
	}
	return nil
}
