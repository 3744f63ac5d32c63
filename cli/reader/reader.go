package reader

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/preload/frame"
	preloadlode "github.com/pithecene-io/preload/lode"
	"github.com/pithecene-io/preload/types"
)

// Archive backends readable by the CLI.
const (
	BackendFrame = "frame"
	BackendLode  = "lode"
)

// ErrPathRequired is returned when Source has no path.
var ErrPathRequired = errors.New("archive path is required")

// Source locates an archive.
type Source struct {
	// Backend is frame (default) or lode.
	Backend string
	// Path is the frame file, the Lode root directory, or bucket/prefix
	// when Storage is s3.
	Path string
	// RunID restricts a Lode read to one run. Empty reads all runs.
	RunID string
	// Dataset is the Lode dataset ID (default "preload").
	Dataset string
	// Storage is fs (default) or s3.
	Storage   string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Archive is a loaded archive.
type Archive struct {
	Records []*types.ArchiveRecord
	// Metrics is the run's latest metrics row; nil for frame archives or
	// when none was written.
	Metrics *RunMetrics
}

// Load reads every record of the archive described by src.
func Load(ctx context.Context, src Source) (*Archive, error) {
	if src.Path == "" {
		return nil, ErrPathRequired
	}
	switch src.Backend {
	case "", BackendFrame:
		recs, err := frame.ReadFile(src.Path)
		if err != nil {
			return nil, err
		}
		return &Archive{Records: recs}, nil
	case BackendLode:
		ds, err := openDataset(ctx, src)
		if err != nil {
			return nil, err
		}
		return loadLode(ctx, ds, src.RunID)
	default:
		return nil, fmt.Errorf("unknown archive backend %q (want frame or lode)", src.Backend)
	}
}

func openDataset(ctx context.Context, src Source) (lode.Dataset, error) {
	switch src.Storage {
	case "", "fs":
		return preloadlode.NewReadDatasetFS(src.Dataset, src.Path)
	case "s3":
		bucket, prefix := preloadlode.ParseS3Path(src.Path)
		return preloadlode.NewReadDatasetS3(ctx, src.Dataset, preloadlode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       src.Region,
			Endpoint:     src.Endpoint,
			UsePathStyle: src.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown lode storage %q (want fs or s3)", src.Storage)
	}
}

func loadLode(ctx context.Context, ds lode.Dataset, runID string) (*Archive, error) {
	recs, err := preloadlode.ReadRecords(ctx, ds, runID)
	if err != nil {
		return nil, err
	}
	a := &Archive{Records: recs}

	row, err := preloadlode.QueryLatestMetrics(ctx, ds, runID)
	switch {
	case errors.Is(err, preloadlode.ErrNoMetricsFound):
	case err != nil:
		return nil, err
	default:
		if a.Metrics, err = ParseMetricsRecord(row); err != nil {
			return nil, fmt.Errorf("metrics record: %w", err)
		}
	}
	return a, nil
}

// Items flattens the archive for inspect.
func (a *Archive) Items() []RecordItem {
	items := make([]RecordItem, 0, len(a.Records))
	for _, rec := range a.Records {
		items = append(items, NewRecordItem(rec))
	}
	return items
}

// Stats folds the archive into counts by kind, loader and class version.
func (a *Archive) Stats() *ArchiveStats {
	s := &ArchiveStats{
		ByMajor:    make(map[string]int),
		RunMetrics: a.Metrics,
	}
	runs := make(map[string]struct{})
	for _, rec := range a.Records {
		s.Records++
		runs[rec.RunID] = struct{}{}
		switch rec.Kind {
		case types.RecordKindLoaded:
			s.Loaded++
			s.TotalBytes += rec.SizeBytes
			s.ByMajor[strconv.Itoa(int(rec.MajorVersion))]++
		case types.RecordKindSource:
			s.Source++
		}
		switch rec.Loader {
		case types.LoaderPrimary:
			s.Primary++
		case types.LoaderFallback:
			s.Fallback++
		}
	}
	s.Runs = len(runs)
	return s
}
