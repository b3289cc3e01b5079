// Package pipeline wires the build end to end: fetch the source feed,
// classify and merge the address ranges, assemble the table, write the
// artifact atomically, and record the audit trail.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/geotable-cli/internal/config"
	"github.com/sells-group/geotable-cli/internal/fetcher"
	"github.com/sells-group/geotable-cli/internal/geolite"
	"github.com/sells-group/geotable-cli/internal/store"
	"github.com/sells-group/geotable-cli/internal/table"
	"github.com/sells-group/geotable-cli/internal/tier"
)

// cap on individually logged overlap anomalies; the total is always
// reported.
const maxLoggedOverlaps = 10

var humanize = message.NewPrinter(language.English)

// Options controls one build run.
type Options struct {
	Tiers tier.Config

	// SourceDir points at an already-extracted CSV directory. When set, no
	// download happens and no license key is needed.
	SourceDir string

	// Fetcher downloads the feed archive. Nil selects the default HTTP
	// fetcher with the feed-host rate limiter.
	Fetcher fetcher.Fetcher
}

// Result summarizes a completed build.
type Result struct {
	BuildID  string
	Output   string
	RowsRead int64
	Entries  int
	Overlaps int
	Skips    geolite.SkipReport
	Duration time.Duration
}

// Run executes the whole build. Configuration and collaborator failures
// abort the run before any artifact is written; per-row failures are
// tallied and never abort. The output file is replaced atomically only
// after assembly and validation complete.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	started := time.Now()

	if err := opts.Tiers.Validate(); err != nil {
		return nil, err
	}
	if opts.SourceDir == "" && cfg.MaxMind.LicenseKey == "" {
		return nil, eris.New("pipeline: no MaxMind license key configured (set GEOTABLE_MAXMIND_LICENSE_KEY or use --source-dir)")
	}

	src, cleanup, err := resolveSource(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	log.Info("loading locations map")
	locations, err := geolite.LoadLocations(ctx, src.LocationsPath)
	if err != nil {
		return nil, err
	}
	log.Info("locations map loaded", zap.Int("entries", len(locations)))

	classifier := tier.NewClassifier(opts.Tiers)
	skips, rows, err := geolite.StreamBlocks(ctx, src.BlocksPath, locations, func(r geolite.Record) {
		classifier.Add(r.Code, r.Range)
	})
	if err != nil {
		return nil, err
	}
	skips.Unresolved = classifier.Dropped()
	log.Info("blocks classified",
		zap.String("rows", humanize.Sprintf("%d", rows)),
		zap.Int("skipped", skips.Total()),
		zap.Int("unresolved", skips.Unresolved),
	)

	entries, stats, err := tier.Assemble(ctx, classifier, cfg.Build.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: assemble")
	}
	for _, st := range stats {
		log.Info("merged",
			zap.String("code", st.Code),
			zap.Int("tier", int(st.Tier)),
			zap.String("ranges", humanize.Sprintf("%d -> %d", st.Raw, st.Merged)),
		)
	}

	// Overlaps are data-quality anomalies in the source feed: report them,
	// never repair them.
	overlaps := tier.CheckEntries(entries)
	for i, o := range overlaps {
		if i == maxLoggedOverlaps {
			log.Warn("further overlaps suppressed", zap.Int("total", len(overlaps)))
			break
		}
		log.Warn("overlapping entries in assembled table",
			zap.Uint32("a_start", o.A.Start), zap.Uint32("a_end", o.A.End), zap.String("a_code", o.A.Code),
			zap.Uint32("b_start", o.B.Start), zap.Uint32("b_end", o.B.End), zap.String("b_code", o.B.Code),
		)
	}

	generated := time.Now().UTC()
	tbl := table.New(entries, opts.Tiers, generated)
	if err := table.Write(tbl, cfg.Build.Output); err != nil {
		return nil, err
	}
	log.Info("artifact written",
		zap.String("path", cfg.Build.Output),
		zap.String("entries", humanize.Sprintf("%d", len(entries))),
	)

	res := &Result{
		Output:   cfg.Build.Output,
		RowsRead: rows,
		Entries:  len(entries),
		Overlaps: len(overlaps),
		Skips:    skips,
		Duration: time.Since(started),
	}

	if cfg.Build.AuditDB != "" {
		id, err := recordAudit(ctx, cfg.Build.AuditDB, store.BuildRecord{
			Generated:  generated,
			RowsRead:   rows,
			Entries:    len(entries),
			Overlaps:   len(overlaps),
			Skips:      skips,
			Stats:      stats,
			Tier3Tally: classifier.Tier3Tally(),
		})
		if err != nil {
			return nil, err
		}
		res.BuildID = id
	}

	return res, nil
}

// resolveSource locates the feed CSVs, downloading the archive first unless
// a pre-extracted directory was given. The returned cleanup removes the
// temp dir (on success and failure alike) unless the config keeps it.
func resolveSource(ctx context.Context, cfg *config.Config, opts Options) (geolite.Source, func(), error) {
	noop := func() {}

	if opts.SourceDir != "" {
		src, err := geolite.Locate(opts.SourceDir, cfg.Build.Locales)
		return src, noop, err
	}

	tempDir := cfg.Build.TempDir
	if tempDir == "" {
		dir, err := os.MkdirTemp("", "geotable-*")
		if err != nil {
			return geolite.Source{}, noop, eris.Wrap(err, "pipeline: create temp dir")
		}
		tempDir = dir
	} else if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return geolite.Source{}, noop, eris.Wrap(err, "pipeline: create temp dir")
	}

	cleanup := noop
	if !cfg.Build.KeepTemp {
		cleanup = func() {
			if err := os.RemoveAll(tempDir); err != nil {
				zap.L().Warn("failed to remove temp dir", zap.String("dir", tempDir), zap.Error(err))
			}
		}
	}

	f := opts.Fetcher
	if f == nil {
		f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
	}

	url := geolite.DownloadURL(cfg.MaxMind.Edition, cfg.MaxMind.LicenseKey)
	src, err := geolite.Fetch(ctx, f, url, tempDir, cfg.Build.Locales)
	if err != nil {
		cleanup()
		return geolite.Source{}, noop, err
	}

	return src, cleanup, nil
}

func recordAudit(ctx context.Context, dsn string, rec store.BuildRecord) (string, error) {
	s, err := store.Open(dsn)
	if err != nil {
		return "", err
	}
	defer s.Close() //nolint:errcheck

	if err := s.Migrate(ctx); err != nil {
		return "", err
	}
	return s.RecordBuild(ctx, rec)
}
