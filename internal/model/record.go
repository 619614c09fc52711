package model

import (
	"encoding/json"

	"modu-catholic/internal/schedule"
)

// RepairRecord is a published-post record queued for mass-time recovery.
// Batch files are produced by other tooling and carry fields this
// pipeline does not model (post IDs, titles, ...), so unknown keys are
// preserved across a load/save round trip.
type RepairRecord struct {
	ChurchName      string           `json:"church_name"`
	Diocese         string           `json:"diocese,omitempty"`
	Address         string           `json:"address,omitempty"`
	RepairedTimes   *schedule.Result `json:"repaired_mass_times,omitempty"`
	RepairSource    string           `json:"repair_source,omitempty"`
	RepairTimestamp string           `json:"repair_timestamp,omitempty"`

	extra map[string]json.RawMessage
}

// repairRecordAlias avoids recursing into the custom codec below.
type repairRecordAlias RepairRecord

// UnmarshalJSON decodes the known fields and stashes everything else.
func (r *RepairRecord) UnmarshalJSON(data []byte) error {
	var alias repairRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownRecordKeys {
		delete(raw, key)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*r = RepairRecord(alias)
	r.extra = raw
	return nil
}

// MarshalJSON re-emits the preserved unknown keys alongside the known
// fields. Known fields win on key collisions.
func (r RepairRecord) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(repairRecordAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

var knownRecordKeys = []string{
	"church_name",
	"diocese",
	"address",
	"repaired_mass_times",
	"repair_source",
	"repair_timestamp",
}
