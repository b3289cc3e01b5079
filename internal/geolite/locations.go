package geolite

import (
	"context"
	"os"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotable-cli/internal/fetcher"
)

// LoadLocations reads a locations CSV into a geoname_id -> country ISO code
// map. Rows without a country code still enter the map as empty strings, so
// a join hit on them surfaces as an unresolved code rather than a miss with
// a different meaning.
func LoadLocations(ctx context.Context, path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geolite: open locations %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	byID := make(map[string]string)

	header, ok := <-headerCh
	if !ok {
		if err := <-errCh; err != nil {
			return nil, eris.Wrap(err, "geolite: read locations")
		}
		return nil, eris.Errorf("geolite: locations file %s has no header", path)
	}
	idIdx := slices.Index(header, "geoname_id")
	codeIdx := slices.Index(header, "country_iso_code")
	if idIdx < 0 || codeIdx < 0 {
		go drain(rowCh, errCh)
		return nil, eris.Errorf("geolite: locations header missing geoname_id/country_iso_code in %s", path)
	}

	for row := range rowCh {
		if len(row) <= idIdx || len(row) <= codeIdx || row[idIdx] == "" {
			continue
		}
		byID[row[idIdx]] = row[codeIdx]
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "geolite: read locations")
	}
	if len(byID) == 0 {
		return nil, eris.Errorf("geolite: locations file %s has no usable rows", path)
	}

	return byID, nil
}
