package main

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retail-cli/internal/config"
	"github.com/sells-group/retail-cli/internal/fetcher"
	"github.com/sells-group/retail-cli/internal/store"
)

// defaultDownloadName is used when a URL path has no file name.
const defaultDownloadName = "download.bin"

// archiveMembers are the ZIP members worth extracting into a raw directory.
var archiveMembers = []string{".csv", ".xlsx", ".xlsm", ".xls"}

var ingestDataset string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download the raw survey files",
	Long: "Downloads every http(s) or ftp URL listed in the source file into data/raw/<dataset>, " +
		"logging the SHA-256 of each file. ZIP archives are extracted in place.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		datasets, err := datasetsFor(ingestDataset)
		if err != nil {
			return err
		}
		return runIngest(cmd.Context(), cfg, fetcher.NewRouter(cfg.HTTPOptions(), cfg.FTPOptions()), datasets)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDataset, "dataset", "all", "dataset to download: mtrs, msrs or all")
	rootCmd.AddCommand(ingestCmd)
}

// datasetsFor expands the --dataset flag.
func datasetsFor(flag string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "", "all":
		return []string{config.DatasetNational, config.DatasetState}, nil
	case config.DatasetNational:
		return []string{config.DatasetNational}, nil
	case config.DatasetState:
		return []string{config.DatasetState}, nil
	default:
		return nil, eris.Errorf("ingest: unknown dataset %q (want mtrs, msrs or all)", flag)
	}
}

// runIngest downloads every configured file of each dataset.
func runIngest(ctx context.Context, c *config.Config, f fetcher.Fetcher, datasets []string) error {
	sources, err := config.LoadSources(c.Paths.SourcesFile)
	if err != nil {
		return eris.Wrap(err, "ingest")
	}
	layout := store.Layout{DataDir: c.Paths.DataDir}

	for _, ds := range datasets {
		urls, err := sources.Files(ds)
		if err != nil {
			return err
		}

		rawDir := layout.RawDir(ds)
		if err := os.MkdirAll(rawDir, 0o755); err != nil {
			return eris.Wrapf(err, "ingest: mkdir %s", rawDir)
		}

		zap.L().Info("downloading dataset",
			zap.String("dataset", ds),
			zap.Int("files", len(urls)),
			zap.Int("concurrency", c.Fetch.Concurrency),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, c.Fetch.Concurrency))
		for _, u := range urls {
			g.Go(func() error {
				return downloadOne(gctx, f, u, rawDir)
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrapf(err, "ingest %s", ds)
		}
	}
	return nil
}

// downloadOne saves rawURL into dir and unpacks it when it is a ZIP archive.
func downloadOne(ctx context.Context, f fetcher.Fetcher, rawURL, dir string) error {
	dest := filepath.Join(dir, downloadName(rawURL))

	n, sum, err := f.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return eris.Wrapf(err, "download %s", rawURL)
	}
	zap.L().Info("saved",
		zap.String("path", dest),
		zap.String("sha256", sum),
		zap.Int64("bytes", n),
	)

	if !strings.EqualFold(filepath.Ext(dest), ".zip") {
		return nil
	}

	extracted, err := fetcher.ExtractZIP(dest, dir, archiveMembers...)
	if err != nil {
		return eris.Wrapf(err, "extract %s", dest)
	}
	if err := os.Remove(dest); err != nil {
		return eris.Wrapf(err, "remove %s", dest)
	}
	zap.L().Info("extracted", zap.String("archive", dest), zap.Strings("files", extracted))
	return nil
}

// downloadName is the base name of the URL path, or defaultDownloadName.
func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultDownloadName
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return defaultDownloadName
	}
	return base
}
