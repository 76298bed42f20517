// Package bundle assembles a diagnostics archive for support requests:
// version info, a config snapshot, the host probe outcome, and recent
// invocation metrics, written as a tar.gz stream.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"varlens/internal/config"
	"varlens/internal/host"
	"varlens/internal/metrics"
	"varlens/internal/version"
)

// archivePrefix is the directory all bundle entries live under.
const archivePrefix = "varlens-bundle"

// recentLimit caps how many invocation rows the bundle carries.
const recentLimit = 50

// metricsWindow bounds the aggregate summary in the bundle.
const metricsWindow = 24 * time.Hour

// Contents selects what goes into the archive. Nil fields are skipped.
type Contents struct {
	// Config is snapshotted as config.json.
	Config *config.Config

	// HostStatus is the offline host probe outcome.
	HostStatus *host.Status

	// Metrics contributes recent invocations and a 24h summary.
	Metrics *metrics.Store
}

// versionInfo is the version.json entry.
type versionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"buildDate"`
	GeneratedAt string `json:"generatedAt"`
}

// Write streams a diagnostics archive to w.
func Write(w io.Writer, c Contents) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	info := versionInfo{
		Version:     version.Version,
		Commit:      version.Commit,
		BuildDate:   version.BuildDate,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := addJSON(tw, "version.json", info); err != nil {
		return err
	}

	if c.Config != nil {
		if err := addJSON(tw, "config.json", c.Config); err != nil {
			return err
		}
	}

	if c.HostStatus != nil {
		if err := addJSON(tw, "host_status.json", c.HostStatus); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := addMetrics(tw, c.Metrics); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}

// WriteFile writes the archive to path, creating parent directories.
func WriteFile(path string, c Contents) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	defer f.Close()

	if err := Write(f, c); err != nil {
		return err
	}
	return f.Sync()
}

func addMetrics(tw *tar.Writer, store *metrics.Store) error {
	recent, err := store.Recent(recentLimit, "")
	if err != nil {
		return fmt.Errorf("collect recent invocations: %w", err)
	}
	if err := addJSON(tw, "metrics/recent.json", recent); err != nil {
		return err
	}

	summary, err := store.Aggregates(time.Now().Add(-metricsWindow))
	if err != nil {
		return fmt.Errorf("collect metrics summary: %w", err)
	}
	return addJSON(tw, "metrics/summary.json", summary)
}

// addJSON marshals v and writes it as one archive entry.
func addJSON(tw *tar.Writer, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	hdr := &tar.Header{
		Name:     archivePrefix + "/" + name,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  time.Now().UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
