package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// referenceModel describes a downloadable model and where each format lives.
type referenceModel struct {
	name     string
	fileBase string
	urls     map[string]string // format -> URL
	formats  []string          // preference order; first is the default
}

const (
	humanGEMBaseURL = "https://raw.githubusercontent.com/SysBioChalmers/Human-GEM/main/model"
	biggBaseURL     = "http://bigg.ucsd.edu/static/models"
)

var referenceModels = []referenceModel{
	{
		name:     "human-gem",
		fileBase: "Human-GEM",
		urls: map[string]string{
			"yml": humanGEMBaseURL + "/Human-GEM.yml",
			"xml": humanGEMBaseURL + "/Human-GEM.xml",
		},
		formats: []string{"yml", "xml"},
	},
	{
		name:     "recon3d",
		fileBase: "Recon3D",
		urls: map[string]string{
			"json": biggBaseURL + "/Recon3D.json",
			"xml":  biggBaseURL + "/Recon3D.xml",
		},
		formats: []string{"json", "xml"},
	},
	{
		name:     "e-coli-core",
		fileBase: "e_coli_core",
		urls: map[string]string{
			"json": biggBaseURL + "/e_coli_core.json",
			"xml":  biggBaseURL + "/e_coli_core.xml",
		},
		formats: []string{"json", "xml"},
	},
}

// lookupReferenceModel finds a downloadable model by name, case-insensitively.
func lookupReferenceModel(name string) (referenceModel, bool) {
	name = strings.ToLower(name)
	for _, rm := range referenceModels {
		if rm.name == name || strings.ToLower(rm.fileBase) == name {
			return rm, true
		}
	}
	return referenceModel{}, false
}

// url returns the download URL for format, or the default format if empty.
func (rm referenceModel) url(format string) (string, error) {
	format = strings.ToLower(format)
	switch format {
	case "":
		format = rm.formats[0]
	case "yaml":
		format = "yml"
	case "sbml":
		format = "xml"
	}
	u, ok := rm.urls[format]
	if !ok {
		return "", fmt.Errorf("model %s is not available as %q (want %s)", rm.name, format, strings.Join(rm.formats, ", "))
	}
	return u, nil
}

func referenceModelNames() []string {
	names := make([]string, len(referenceModels))
	for i, rm := range referenceModels {
		names[i] = rm.name
	}
	sort.Strings(names)
	return names
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		modelName string
		format    string
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a reference model",
		Long: fmt.Sprintf(`Download a reference genome-scale metabolic model.

Available models: %s

Files are stored in ~/.gem-gsc/models/ by default. Downloaded models can be
passed to other commands by name, e.g. 'gem-gsc extract human-gem'.`, strings.Join(referenceModelNames(), ", ")),
		Example: `  # Download Human-GEM YAML (default)
  gem-gsc download

  # Download the SBML release instead
  gem-gsc download --format xml

  # Download the E. coli core model as COBRA JSON
  gem-gsc download --model e-coli-core`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, ok := lookupReferenceModel(modelName)
			if !ok {
				return &usageError{fmt.Errorf("unknown model %q (available: %s)", modelName, strings.Join(referenceModelNames(), ", "))}
			}
			url, err := rm.url(format)
			if err != nil {
				return &usageError{err}
			}

			if outputDir == "" {
				outputDir = DefaultModelPath()
				if outputDir == "" {
					return fmt.Errorf("cannot determine home directory")
				}
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", outputDir, err)
			}

			dest := filepath.Join(outputDir, filepath.Base(url))
			fmt.Fprintf(a.stdout, "Downloading %s...\n", rm.fileBase)
			fmt.Fprintf(a.stdout, "Destination: %s\n\n", outputDir)

			d := &downloader{
				client: &http.Client{Timeout: 30 * time.Minute},
				out:    a.stdout,
				logger: a.logger,
			}
			if err := d.fetch(url, dest, force); err != nil {
				return fmt.Errorf("download %s: %w", rm.fileBase, err)
			}

			fmt.Fprintf(a.stdout, "\nDownload complete!\n")
			fmt.Fprintf(a.stdout, "To extract gene sets, run:\n")
			fmt.Fprintf(a.stdout, "  gem-gsc extract %s\n", rm.name)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "human-gem", "Model to download")
	cmd.Flags().StringVar(&format, "format", "", "File format: yml, xml, json (default: first available)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.gem-gsc/models/)")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the file already exists")

	return cmd
}

// downloader fetches files over HTTP with progress output.
type downloader struct {
	client *http.Client
	out    io.Writer
	logger *zap.Logger
}

// fetch downloads url to destPath through a temporary file.
func (d *downloader) fetch(url, destPath string, force bool) error {
	if info, err := os.Stat(destPath); err == nil && !force {
		fmt.Fprintf(d.out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(d.out, "  Downloading %s...\n", filepath.Base(destPath))
	d.logger.Debug("http get", zap.String("url", url))

	resp, err := d.client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	bar := pb.New64(resp.ContentLength)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", "   ")
	bar.SetWriter(d.out)
	bar.Start()

	_, err = io.Copy(f, bar.NewProxyReader(resp.Body))
	bar.Finish()
	f.Close()
	downloaded := bar.Current()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(d.out, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// DefaultModelPath returns the default directory for downloaded models.
func DefaultModelPath() string {
	base := defaultDataDir()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "models")
}

// FindModel looks for a downloaded model in the default location.
func FindModel(name string) (string, bool) {
	dir := DefaultModelPath()
	if dir == "" {
		return "", false
	}
	return findModelIn(dir, name)
}

// findModelIn resolves a reference model name to a file in dir, trying
// formats in preference order and accepting gzipped copies.
func findModelIn(dir, name string) (string, bool) {
	rm, ok := lookupReferenceModel(name)
	if !ok {
		return "", false
	}
	for _, format := range rm.formats {
		base := filepath.Base(rm.urls[format])
		for _, candidate := range []string{base, base + ".gz"} {
			path := filepath.Join(dir, candidate)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}
