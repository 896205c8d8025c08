package statistics

import (
	"bytes"
	"encoding/json"
)

// EngineInfo is the display metadata of an engine in a report.
type EngineInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Row is one bucket: a label and a count per engine. Counts is aligned with
// the report's engine ids.
type Row struct {
	Timestamp string
	engines   []string
	Counts    []int
}

// Count returns the count of engineID in the bucket.
func (r Row) Count(engineID string) int {
	for i, id := range r.engines {
		if id == engineID {
			return r.Counts[i]
		}
	}
	return 0
}

// MarshalJSON renders {"timestamp": label, "<engine id>": count, ...} with
// engine keys in ascending order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"timestamp":`)
	if err := writeJSON(&buf, r.Timestamp); err != nil {
		return nil, err
	}
	for i, id := range r.engines {
		buf.WriteByte(',')
		if err := writeJSON(&buf, id); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, r.Counts[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Report is the result of an aggregation. Engines lists only engines that
// appear in at least one bucket.
type Report struct {
	Data    []Row                 `json:"data"`
	Engines map[string]EngineInfo `json:"engines"`
}

// EngineIDs returns the engine ids present in the report, sorted.
func (r *Report) EngineIDs() []string {
	if len(r.Data) == 0 {
		return nil
	}
	return append([]string(nil), r.Data[0].engines...)
}

func emptyReport() *Report {
	return &Report{Data: []Row{}, Engines: map[string]EngineInfo{}}
}
