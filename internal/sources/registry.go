// Package sources maps configured source keys onto adapters.
package sources

import (
	"fmt"
	"sort"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/sources/glints"
	"github.com/JakeFAU/realtime-job-ingestor/internal/sources/jobstreet"
	"github.com/JakeFAU/realtime-job-ingestor/internal/sources/loker"
	"github.com/JakeFAU/realtime-job-ingestor/internal/worker"
)

// Configuration keys of the supported sources.
const (
	KeyLoker     = "loker"
	KeyJobStreet = "jobstreet"
	KeyGlints    = "glints"
)

// Options tune an adapter. Zero values select the adapter's defaults.
type Options struct {
	BaseURL     string
	UserAgent   string
	PageSize    int
	CountryCode string
}

var displayNames = map[string]string{
	KeyLoker:     loker.SourceName,
	KeyJobStreet: jobstreet.SourceName,
	KeyGlints:    glints.SourceName,
}

// Keys lists the supported source keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(displayNames))
	for k := range displayNames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DisplayName returns the job_source value for a key.
func DisplayName(key string) (string, bool) {
	name, ok := displayNames[key]
	return name, ok
}

// Factory returns a worker.Factory for key. Unknown keys still yield a
// factory; it fails when invoked so only that worker stops.
func Factory(key string, fetcher ingest.Fetcher, opts Options) worker.Factory {
	return func() (worker.Adapter, error) {
		switch key {
		case KeyLoker:
			c, err := loker.New(fetcher, loker.Config{BaseURL: opts.BaseURL, UserAgent: opts.UserAgent})
			if err != nil {
				return worker.Adapter{}, err
			}
			return worker.Adapter{Source: c, Extractor: loker.Extractor{}}, nil
		case KeyJobStreet:
			c, err := jobstreet.New(fetcher, jobstreet.Config{
				BaseURL:   opts.BaseURL,
				UserAgent: opts.UserAgent,
				PageSize:  opts.PageSize,
				SiteKey:   opts.CountryCode,
			})
			if err != nil {
				return worker.Adapter{}, err
			}
			return worker.Adapter{Source: c, Extractor: jobstreet.Extractor{}}, nil
		case KeyGlints:
			c, err := glints.New(fetcher, glints.Config{
				Endpoint:    opts.BaseURL,
				UserAgent:   opts.UserAgent,
				PageSize:    opts.PageSize,
				CountryCode: opts.CountryCode,
			})
			if err != nil {
				return worker.Adapter{}, err
			}
			return worker.Adapter{Source: c, Extractor: glints.Extractor{}}, nil
		default:
			return worker.Adapter{}, fmt.Errorf("unknown source %q", key)
		}
	}
}
