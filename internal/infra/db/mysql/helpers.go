package mysql

import (
	"encoding/json"
	"strings"

	"github.com/Jimstew23/smlgpt-pipeline/internal/domain/assessment"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// encodeRecord serializes the full record for the payload column.
func encodeRecord(rec *assessment.Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeRecord restores a record from the payload column.
func decodeRecord(payload string) (*assessment.Record, error) {
	var rec assessment.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, err
	}
	if rec.Hazards == nil {
		rec.Hazards = []assessment.Hazard{}
	}
	return &rec, nil
}
