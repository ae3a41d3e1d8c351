package linking

import (
	"encoding/json"
)

// UnionProfiles merges two sectioned profiles (section -> key -> value).
// Every section and key from both sides survives; on conflict the kept
// entity's value wins.
func UnionProfiles(kept json.RawMessage, dropped json.RawMessage) json.RawMessage {
	keptMap := decodeProfile(kept)
	droppedMap := decodeProfile(dropped)

	merged := make(map[string]map[string]any, len(keptMap)+len(droppedMap))
	for section, fields := range droppedMap {
		out := make(map[string]any, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		merged[section] = out
	}
	for section, fields := range keptMap {
		out, ok := merged[section]
		if !ok {
			out = make(map[string]any, len(fields))
			merged[section] = out
		}
		for k, v := range fields {
			out[k] = v
		}
	}

	if len(merged) == 0 {
		return nil
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		// Maps of plain JSON values always marshal; fall back to the kept
		// profile untouched.
		return kept
	}
	return raw
}

// decodeProfile tolerates a missing or malformed profile by treating it
// as empty; merges must not fail on a bad stored blob.
func decodeProfile(raw json.RawMessage) map[string]map[string]any {
	if len(raw) == 0 {
		return map[string]map[string]any{}
	}
	out := map[string]map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]map[string]any{}
	}
	return out
}
