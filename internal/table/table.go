// Package table models the serialized lookup-table artifact: metadata plus
// the sorted region entries, encoded as compact JSON tuples.
package table

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotable-cli/internal/tier"
)

// Version tags the artifact schema.
const Version = "three-tier-v1"

// Meta describes the tier configuration and provenance of an artifact.
type Meta struct {
	Version     string   `json:"version"`
	Tier1       []string `json:"tier1"`
	Tier2       []string `json:"tier2"`
	Other       string   `json:"other"`
	Generated   string   `json:"generated"`
	TotalRanges int      `json:"totalRanges"`
}

// Table is the full artifact: metadata plus the entry sequence, which must
// be start-ascending and pairwise disjoint for consumers to binary search.
type Table struct {
	Meta    Meta
	Entries []tier.Entry
}

// New builds a table for the given assembled entries and tier configuration.
func New(entries []tier.Entry, cfg tier.Config, generated time.Time) Table {
	return Table{
		Meta: Meta{
			Version:     Version,
			Tier1:       cfg.Codes1(),
			Tier2:       cfg.Codes2(),
			Other:       cfg.CatchAll,
			Generated:   generated.UTC().Format("2006-01-02"),
			TotalRanges: len(entries),
		},
		Entries: entries,
	}
}

// entryRow encodes one entry as the wire tuple [start, end, code].
type entryRow tier.Entry

func (r entryRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Start, r.End, r.Code})
}

func (r *entryRow) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return eris.Wrap(err, "table: decode entry tuple")
	}
	if len(tuple) != 3 {
		return eris.Errorf("table: entry tuple has %d elements, want 3", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &r.Start); err != nil {
		return eris.Wrap(err, "table: decode entry start")
	}
	if err := json.Unmarshal(tuple[1], &r.End); err != nil {
		return eris.Wrap(err, "table: decode entry end")
	}
	if err := json.Unmarshal(tuple[2], &r.Code); err != nil {
		return eris.Wrap(err, "table: decode entry code")
	}
	return nil
}

type wireTable struct {
	Meta Meta       `json:"meta"`
	Data []entryRow `json:"data"`
}

// MarshalJSON encodes the table in the artifact layout.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := make([]entryRow, len(t.Entries))
	for i, e := range t.Entries {
		rows[i] = entryRow(e)
	}
	return json.Marshal(wireTable{Meta: t.Meta, Data: rows})
}

// UnmarshalJSON decodes the artifact layout.
func (t *Table) UnmarshalJSON(data []byte) error {
	var wire wireTable
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.Meta = wire.Meta
	t.Entries = make([]tier.Entry, len(wire.Data))
	for i, r := range wire.Data {
		t.Entries[i] = tier.Entry(r)
	}
	return nil
}

// Validate checks that the metadata is internally consistent with the entry
// sequence. Sortedness and disjointness are checked separately via
// tier.CheckEntries, since violations there are data-quality anomalies
// rather than a corrupt artifact.
func (t Table) Validate() error {
	if t.Meta.Version == "" {
		return eris.New("table: missing version")
	}
	if t.Meta.TotalRanges != len(t.Entries) {
		return eris.Errorf("table: meta reports %d ranges, artifact has %d",
			t.Meta.TotalRanges, len(t.Entries))
	}
	if slices.Contains(t.Meta.Tier1, t.Meta.Other) || slices.Contains(t.Meta.Tier2, t.Meta.Other) {
		return eris.Errorf("table: catch-all code %q collides with a tier set", t.Meta.Other)
	}
	for _, c1 := range t.Meta.Tier1 {
		if slices.Contains(t.Meta.Tier2, c1) {
			return eris.Errorf("table: code %q appears in both tier sets", c1)
		}
	}
	for i, e := range t.Entries {
		if e.Start > e.End {
			return eris.Errorf("table: entry %d has start %d > end %d", i, e.Start, e.End)
		}
	}
	return nil
}
