// ABOUTME: Conversions from published board views into history records.
// ABOUTME: Used by every front end so settled runs and loaded charts are recorded the same way.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/2389-research/tusk/board"
)

// RunFromView builds the record of a settled run. Views with no run id or
// no settle time are rejected.
func RunFromView(v board.View) (RunRecord, error) {
	if v.RunID == "" {
		return RunRecord{}, fmt.Errorf("run from view: no run id")
	}
	if v.SettledAt == nil {
		return RunRecord{}, fmt.Errorf("run from view: run %s has not settled", v.RunID)
	}
	rec := RunRecord{
		RunID:     v.RunID,
		SessionID: v.SessionID,
		SettledAt: *v.SettledAt,
		Failures:  v.Failures,
		Agents:    v.Agents,
	}
	if v.RunStartedAt != nil {
		rec.StartedAt = *v.RunStartedAt
	}
	return rec, nil
}

// ChartFromView builds the record of a loaded chart. A payload that is not
// valid JSON is stored as a JSON string.
func ChartFromView(cv board.ChartView, runID string, payload []byte) (ChartRecord, error) {
	records, err := json.Marshal(cv.Records)
	if err != nil {
		return ChartRecord{}, fmt.Errorf("marshal chart records: %w", err)
	}
	raw := json.RawMessage(payload)
	if len(payload) > 0 && !json.Valid(payload) {
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			return ChartRecord{}, fmt.Errorf("quote chart payload: %w", err)
		}
		raw = quoted
	}
	return ChartRecord{
		ChartID:     cv.ID,
		RunID:       runID,
		Family:      string(cv.Family),
		Payload:     raw,
		Records:     records,
		Unsupported: cv.Unsupported,
		CreatedAt:   cv.CreatedAt,
	}, nil
}
