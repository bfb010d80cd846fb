package planner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const maxRecords = 20

// CycleRecord captures what happened in a single planner cycle.
type CycleRecord struct {
	SimTime    string  `json:"sim_time"`
	Phase      string  `json:"phase"`
	Action     string  `json:"action"`
	Archetype  string  `json:"archetype,omitempty"`
	Anchor     string  `json:"anchor,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Money      int     `json:"money"`
	Population int     `json:"population"`
	Error      string  `json:"error,omitempty"`
}

// CycleMemory is a ring of recent planner cycle records, optionally kept on disk.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file at path. Returns empty memory if it is
// missing or unreadable. An empty path keeps memory in process only.
func LoadMemory(path string) *CycleMemory {
	mem := &CycleMemory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("planner memory corrupted, starting fresh", "path", path, "error", err)
		return &CycleMemory{path: path}
	}
	return mem
}

// Save writes the memory to disk, if it has a path.
func (m *CycleMemory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal planner memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		slog.Error("failed to write planner memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Failures counts consecutive failed builds at the end of the record.
func (m *CycleMemory) Failures() int {
	n := 0
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Error == "" {
			break
		}
		n++
	}
	return n
}

// Summary returns one line per recent cycle, newest last.
func (m *CycleMemory) Summary(last int) string {
	start := 0
	if last > 0 && len(m.Records) > last {
		start = len(m.Records) - last
	}

	var b strings.Builder
	for _, r := range m.Records[start:] {
		fmt.Fprintf(&b, "%s %s: %s", r.SimTime, r.Phase, r.Action)
		if r.Archetype != "" {
			fmt.Fprintf(&b, " %s at %s", r.Archetype, r.Anchor)
		}
		fmt.Fprintf(&b, " (money=%d, pop=%d)", r.Money, r.Population)
		if r.Error != "" {
			fmt.Fprintf(&b, " failed: %s", r.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
