// Package geolite fetches and parses the GeoLite2-Country CSV feed: the
// blocks file (CIDR -> location id) joined against a locations file
// (location id -> ISO country code).
package geolite

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geotable-cli/internal/fetcher"
)

const (
	blocksFileName = "GeoLite2-Country-Blocks-IPv4.csv"
	csvDirPrefix   = "GeoLite2-Country-CSV_"
)

// DefaultLocales is the locations-file preference order. Every locale
// carries the same ISO codes, so the first one present wins.
var DefaultLocales = []string{"en"}

// Source points at the two correlated CSV files of one feed snapshot.
type Source struct {
	BlocksPath    string
	LocationsPath string
}

// DownloadURL builds the feed download URL for an edition and license key.
func DownloadURL(edition, licenseKey string) string {
	return fmt.Sprintf(
		"https://download.maxmind.com/app/geoip_download?edition_id=%s&license_key=%s&suffix=zip",
		url.QueryEscape(edition), url.QueryEscape(licenseKey),
	)
}

// Fetch downloads the feed archive into tempDir, extracts it, and locates
// the blocks and locations files.
func Fetch(ctx context.Context, f fetcher.Fetcher, downloadURL, tempDir string, locales []string) (Source, error) {
	log := zap.L().With(zap.String("component", "geolite"))

	zipPath := filepath.Join(tempDir, "source.zip")
	log.Info("downloading feed archive")
	n, err := f.DownloadToFile(ctx, downloadURL, zipPath)
	if err != nil {
		return Source{}, eris.Wrap(err, "geolite: download archive")
	}
	log.Info("feed archive downloaded", zap.Int64("bytes", n))

	if _, err := fetcher.ExtractZIP(zipPath, tempDir); err != nil {
		return Source{}, eris.Wrap(err, "geolite: extract archive")
	}

	return Locate(tempDir, locales)
}

// Locate finds the blocks and locations files under dir. The feed archive
// nests them inside a dated GeoLite2-Country-CSV_* directory, but a
// directory holding the files directly (e.g. --source-dir) also works.
// The locations file is resolved from the locale preference order; no
// candidate present is a fatal error.
func Locate(dir string, locales []string) (Source, error) {
	csvDir, err := findCSVDir(dir)
	if err != nil {
		return Source{}, err
	}

	blocksPath := filepath.Join(csvDir, blocksFileName)
	if _, err := os.Stat(blocksPath); err != nil {
		return Source{}, eris.Wrapf(err, "geolite: blocks file missing in %s", csvDir)
	}

	if len(locales) == 0 {
		locales = DefaultLocales
	}
	for _, locale := range locales {
		locPath := filepath.Join(csvDir, fmt.Sprintf("GeoLite2-Country-Locations-%s.csv", locale))
		if _, err := os.Stat(locPath); err == nil {
			return Source{BlocksPath: blocksPath, LocationsPath: locPath}, nil
		}
	}

	return Source{}, eris.Errorf("geolite: no locations file for locales %v in %s", locales, csvDir)
}

func findCSVDir(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, blocksFileName)); err == nil {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrapf(err, "geolite: read %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), csvDirPrefix) {
			return filepath.Join(dir, e.Name()), nil
		}
	}

	return "", eris.Errorf("geolite: no %s* directory under %s", csvDirPrefix, dir)
}
