package conflict

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkravets/offsync/internal/models"
)

// identityFields are fields whose divergence forces escalation: merging two
// payloads that disagree on who or what they describe is never safe.
var identityFields = []string{"id", "user_id", "type", "status"}

// noteFields get concatenated instead of overwritten so neither side's
// free text is lost.
var noteFields = map[string]bool{
	"notes":       true,
	"note":        true,
	"description": true,
	"comment":     true,
}

// payloadView decodes a payload into the generic key-value view merges
// operate on. Non-object payloads have no view.
func payloadView(payload []byte) (map[string]any, bool) {
	var view map[string]any
	if err := json.Unmarshal(payload, &view); err != nil {
		return nil, false
	}
	return view, true
}

func mustJSON(view map[string]any) []byte {
	data, err := json.Marshal(view)
	if err != nil {
		// map[string]any built from Unmarshal output always re-marshals
		panic(fmt.Sprintf("conflict: re-marshal failed: %v", err))
	}
	return data
}

// isComplex reports whether a conflict must be escalated: the key sets
// differ by more than 2, or an identity-critical field diverges.
func isComplex(local, remote map[string]any) bool {
	diff := len(local) - len(remote)
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 {
		return true
	}

	for _, field := range identityFields {
		lv, lok := local[field]
		rv, rok := remote[field]
		if lok && rok && fmt.Sprint(lv) != fmt.Sprint(rv) {
			return true
		}
	}

	return false
}

// lastWriteWins picks the whole payload with the later updated_at (falling
// back to created_at). A tie goes to the remote side, which keeps the
// outcome identical on every device.
func lastWriteWins(record *models.ConflictRecord) []byte {
	localTime := payloadTimestamp(record.LocalData)
	remoteTime := payloadTimestamp(record.RemoteData)

	if localTime.After(remoteTime) {
		return record.LocalData
	}
	return record.RemoteData
}

func payloadTimestamp(payload []byte) time.Time {
	view, ok := payloadView(payload)
	if !ok {
		return time.Time{}
	}
	for _, field := range []string{"updated_at", "created_at"} {
		if raw, ok := view[field]; ok {
			if t, ok := parseTimestamp(raw); ok {
				return t
			}
		}
	}
	return time.Time{}
}

func parseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	case float64:
		// unix seconds or milliseconds, decided by magnitude
		if v > 1e12 {
			return time.UnixMilli(int64(v)), true
		}
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}

// smartMerge merges field by field: new remote fields are adopted, fields
// present on both sides follow per-type rules, local-only fields are kept.
func smartMerge(local, remote map[string]any) map[string]any {
	merged := make(map[string]any, len(local)+len(remote))

	for key, lv := range local {
		merged[key] = lv
	}

	for key, rv := range remote {
		lv, both := local[key]
		if !both {
			merged[key] = rv
			continue
		}
		merged[key] = mergeField(key, lv, rv)
	}

	return merged
}

// mergeField applies the field-specific rule for a key present on both sides.
func mergeField(key string, local, remote any) any {
	// numeric progress: never lose progress, take the max
	if ln, lok := local.(float64); lok {
		if rn, rok := remote.(float64); rok {
			if ln > rn {
				return ln
			}
			return rn
		}
	}

	// arrays and tag lists: union, preserving local order first
	if la, lok := local.([]any); lok {
		if ra, rok := remote.([]any); rok {
			return unionSlices(la, ra)
		}
	}

	// date fields: newer timestamp wins
	if lt, lok := parseTimestamp(local); lok {
		if rt, rok := parseTimestamp(remote); rok {
			if lt.After(rt) {
				return local
			}
			return remote
		}
	}

	// free-text notes: concatenate both sides
	if noteFields[key] {
		ls, lok := local.(string)
		rs, rok := remote.(string)
		if lok && rok && ls != rs {
			switch {
			case ls == "":
				return rs
			case rs == "":
				return ls
			default:
				return ls + "\n" + rs
			}
		}
	}

	return remote
}

// unionSlices appends remote elements not already present locally. Equality
// is by serialized form so nested values compare structurally.
func unionSlices(local, remote []any) []any {
	seen := make(map[string]bool, len(local))
	out := make([]any, 0, len(local)+len(remote))

	for _, v := range local {
		seen[canonical(v)] = true
		out = append(out, v)
	}
	for _, v := range remote {
		if key := canonical(v); !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}

	return out
}

func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// domainMerge structurally merges nested collections: slices of objects with
// stable "id" fields are matched by id and the matched items merged
// recursively, then new remote items are appended. Other fields fall back
// to the smart-merge rules.
func domainMerge(local, remote map[string]any) map[string]any {
	merged := make(map[string]any, len(local)+len(remote))

	for key, lv := range local {
		merged[key] = lv
	}

	for key, rv := range remote {
		lv, both := local[key]
		if !both {
			merged[key] = rv
			continue
		}

		la, lok := asObjectSlice(lv)
		ra, rok := asObjectSlice(rv)
		if lok && rok {
			merged[key] = mergeObjectSlices(la, ra)
			continue
		}

		merged[key] = mergeField(key, lv, rv)
	}

	return merged
}

// asObjectSlice accepts a slice whose elements are all id-bearing objects.
func asObjectSlice(v any) ([]map[string]any, bool) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}

	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		if _, hasID := obj["id"]; !hasID {
			return nil, false
		}
		out = append(out, obj)
	}
	return out, true
}

// mergeObjectSlices merges two id-keyed collections: matched ids merge
// recursively, unmatched items from both sides survive.
func mergeObjectSlices(local, remote []map[string]any) []any {
	remoteByID := make(map[string]map[string]any, len(remote))
	for _, obj := range remote {
		remoteByID[fmt.Sprint(obj["id"])] = obj
	}

	matched := make(map[string]bool, len(local))
	out := make([]any, 0, len(local)+len(remote))

	for _, lobj := range local {
		id := fmt.Sprint(lobj["id"])
		if robj, ok := remoteByID[id]; ok {
			matched[id] = true
			out = append(out, domainMerge(lobj, robj))
			continue
		}
		out = append(out, lobj)
	}

	for _, robj := range remote {
		if !matched[fmt.Sprint(robj["id"])] {
			out = append(out, robj)
		}
	}

	return out
}
