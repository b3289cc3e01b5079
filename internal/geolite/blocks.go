package geolite

import (
	"context"
	"encoding/binary"
	"net/netip"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/geotable-cli/internal/fetcher"
	"github.com/sells-group/geotable-cli/internal/tier"
)

// progress logging interval, in rows.
const progressEvery = 200000

var humanize = message.NewPrinter(language.English)

// Record is one joined feed row: an address range and its resolved country
// code. Code is empty when the location id did not resolve.
type Record struct {
	Code  string
	Range tier.Range
}

// SkipReport tallies rows dropped during ingestion, by reason. Unresolved
// is filled in by the caller once classification completes, since the
// classifier owns the empty-code drop.
type SkipReport struct {
	ShortRow   int `json:"short_row"`
	BadCIDR    int `json:"bad_cidr"`
	Unresolved int `json:"unresolved"`
}

// Total returns the number of skipped rows across all reasons.
func (r SkipReport) Total() int {
	return r.ShortRow + r.BadCIDR + r.Unresolved
}

// StreamBlocks reads the blocks CSV, joins each row against the locations
// map, and emits one Record per parseable row. A row that cannot be parsed
// is counted in the report and skipped; it never fails the run. Join misses
// emit a Record with an empty code so the classifier can drop and count
// them. Returns the skip report and the number of data rows read.
func StreamBlocks(ctx context.Context, path string, locations map[string]string, emit func(Record)) (SkipReport, int64, error) {
	log := zap.L().With(zap.String("component", "geolite"))

	f, err := os.Open(path)
	if err != nil {
		return SkipReport{}, 0, eris.Wrapf(err, "geolite: open blocks %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	var report SkipReport
	var rows int64

	header, ok := <-headerCh
	if !ok {
		// Stream ended before a header row arrived.
		if err := <-errCh; err != nil {
			return report, 0, eris.Wrap(err, "geolite: read blocks")
		}
		return report, 0, eris.Errorf("geolite: blocks file %s has no header", path)
	}
	netIdx := slices.Index(header, "network")
	geoIdx := slices.Index(header, "geoname_id")
	regIdx := slices.Index(header, "registered_country_geoname_id")
	if netIdx < 0 || geoIdx < 0 {
		go drain(rowCh, errCh)
		return report, 0, eris.Errorf("geolite: blocks header missing network/geoname_id in %s", path)
	}

	for row := range rowCh {
		rows++
		if rows%progressEvery == 0 {
			log.Info("processing blocks", zap.String("rows", humanize.Sprintf("%d", rows)))
		}

		if len(row) <= netIdx || len(row) <= geoIdx {
			report.ShortRow++
			continue
		}

		r, err := parseCIDR(row[netIdx])
		if err != nil {
			report.BadCIDR++
			continue
		}

		// Prefer the registered country; fall back to the located one.
		geoname := ""
		if regIdx >= 0 && len(row) > regIdx {
			geoname = row[regIdx]
		}
		if geoname == "" {
			geoname = row[geoIdx]
		}

		emit(Record{Code: locations[geoname], Range: r})
	}
	if err := <-errCh; err != nil {
		return report, rows, eris.Wrap(err, "geolite: read blocks")
	}

	return report, rows, nil
}

// parseCIDR converts an IPv4 CIDR block into its inclusive
// [network, broadcast] address range.
func parseCIDR(s string) (tier.Range, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return tier.Range{}, eris.Wrapf(err, "geolite: parse cidr %q", s)
	}
	if !p.Addr().Is4() {
		return tier.Range{}, eris.Errorf("geolite: cidr %q is not IPv4", s)
	}

	p = p.Masked()
	a4 := p.Addr().As4()
	start := binary.BigEndian.Uint32(a4[:])
	end := uint64(start) + (uint64(1) << (32 - p.Bits())) - 1

	return tier.Range{Start: start, End: uint32(end)}, nil
}

// drain consumes the remaining rows of an abandoned stream so its goroutine
// can exit.
func drain(rowCh <-chan []string, errCh <-chan error) {
	for range rowCh {
	}
	<-errCh
}
