// Package report aggregates per-file conversion results into per-platform
// and overall statistics, renders them for the console and saves them as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// NoFormat is shown when a platform produced no output at all
const NoFormat = "N/A"

// FileResult is the outcome of converting one file
type FileResult struct {
	OriginalFile     string  `json:"original_file"`
	NewFile          string  `json:"new_file"`
	OutputFormat     string  `json:"output_format"`
	OriginalSize     int64   `json:"original_size"`
	NewSize          int64   `json:"new_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	TargetSize       string  `json:"target_size"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
}

// MarshalJSON drops the size fields of failed files
func (f FileResult) MarshalJSON() ([]byte, error) {
	if !f.Success {
		return json.Marshal(struct {
			OriginalFile string `json:"original_file"`
			Success      bool   `json:"success"`
			Error        string `json:"error,omitempty"`
		}{f.OriginalFile, false, f.Error})
	}
	type plain FileResult
	return json.Marshal(plain(f))
}

// PlatformResults are the file results of one platform directory
type PlatformResults struct {
	Name    string
	Results []FileResult
}

// PlatformStats summarises one platform
type PlatformStats struct {
	TotalFiles       int            `json:"total_files"`
	SuccessfulFiles  int            `json:"successful_files"`
	OriginalSize     int64          `json:"original_size"`
	NewSize          int64          `json:"new_size"`
	CompressionRatio float64        `json:"compression_ratio"`
	Formats          map[string]int `json:"formats"`
	MainFormat       string         `json:"main_format"`
}

// Saved is the number of bytes saved; negative when outputs grew
func (s PlatformStats) Saved() int64 {
	return s.OriginalSize - s.NewSize
}

// Summary holds the totals over every platform
type Summary struct {
	TotalFiles              int            `json:"total_files"`
	SuccessfulFiles         int            `json:"successful_files"`
	SuccessRate             float64        `json:"success_rate"`
	TotalOriginalSize       int64          `json:"total_original_size"`
	TotalNewSize            int64          `json:"total_new_size"`
	SpaceSaved              int64          `json:"space_saved"`
	OverallCompressionRatio float64        `json:"overall_compression_ratio"`
	FormatDistribution      map[string]int `json:"format_distribution"`
	TargetSize              string         `json:"target_size"`
	Quality                 int            `json:"quality"`
}

// Configuration echoes the settings a run used
type Configuration struct {
	InputDirectory  string   `json:"input_directory"`
	OutputDirectory string   `json:"output_directory"`
	TargetSize      string   `json:"target_size"`
	Quality         int      `json:"quality"`
	Format          string   `json:"format"`
	AvailableTools  []string `json:"available_tools"`
}

// Report is the complete outcome of a run
type Report struct {
	RunID           string                   `json:"run_id"`
	Timestamp       time.Time                `json:"timestamp"`
	Configuration   Configuration            `json:"configuration"`
	Summary         Summary                  `json:"summary"`
	Platforms       map[string]PlatformStats `json:"platforms"`
	DetailedResults map[string][]FileResult  `json:"detailed_results"`

	// JSON objects lose ordering; these keep it for the console
	platformOrder []string
	formatOrder   []string
}

// Ratio is the percentage saved going from original to compressed bytes.
// It is 0 when there was nothing to compress.
func Ratio(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-compressed) / float64(original) * 100
}

// Stats aggregates the results of one platform. Sizes only count
// successful files.
func Stats(results []FileResult) PlatformStats {
	stats := PlatformStats{
		TotalFiles: len(results),
		Formats:    make(map[string]int),
	}

	var order []string
	for _, r := range results {
		if !r.Success {
			continue
		}
		stats.SuccessfulFiles++
		stats.OriginalSize += r.OriginalSize
		stats.NewSize += r.NewSize
		if _, seen := stats.Formats[r.OutputFormat]; !seen {
			order = append(order, r.OutputFormat)
		}
		stats.Formats[r.OutputFormat]++
	}

	stats.CompressionRatio = Ratio(stats.OriginalSize, stats.NewSize)
	stats.MainFormat = mainFormat(stats.Formats, order)
	return stats
}

// mainFormat picks the most frequent format; the first seen wins ties
func mainFormat(counts map[string]int, order []string) string {
	main, best := NoFormat, 0
	for _, f := range order {
		if counts[f] > best {
			main, best = f, counts[f]
		}
	}
	return main
}

// Build aggregates the platforms of a run into a report
func Build(cfg Configuration, platforms []PlatformResults, quality int, now time.Time) *Report {
	r := &Report{
		RunID:           uuid.NewString(),
		Timestamp:       now,
		Configuration:   cfg,
		Platforms:       make(map[string]PlatformStats, len(platforms)),
		DetailedResults: make(map[string][]FileResult, len(platforms)),
		Summary: Summary{
			FormatDistribution: make(map[string]int),
			TargetSize:         cfg.TargetSize,
			Quality:            quality,
		},
	}

	for _, p := range platforms {
		stats := Stats(p.Results)
		r.Platforms[p.Name] = stats
		r.DetailedResults[p.Name] = p.Results
		r.platformOrder = append(r.platformOrder, p.Name)

		r.Summary.TotalFiles += stats.TotalFiles
		r.Summary.SuccessfulFiles += stats.SuccessfulFiles
		r.Summary.TotalOriginalSize += stats.OriginalSize
		r.Summary.TotalNewSize += stats.NewSize

		for _, res := range p.Results {
			if !res.Success {
				continue
			}
			if _, seen := r.Summary.FormatDistribution[res.OutputFormat]; !seen {
				r.formatOrder = append(r.formatOrder, res.OutputFormat)
			}
			r.Summary.FormatDistribution[res.OutputFormat]++
		}
	}

	s := &r.Summary
	s.SpaceSaved = s.TotalOriginalSize - s.TotalNewSize
	s.OverallCompressionRatio = Ratio(s.TotalOriginalSize, s.TotalNewSize)
	if s.TotalFiles > 0 {
		s.SuccessRate = float64(s.SuccessfulFiles) / float64(s.TotalFiles) * 100
	}
	return r
}

// PlatformOrder returns platform names in processing order
func (r *Report) PlatformOrder() []string {
	return r.platformOrder
}

// FormatOrder returns output formats in the order they first appeared
func (r *Report) FormatOrder() []string {
	return r.formatOrder
}

// Filename is the name the report is saved under
func (r *Report) Filename() string {
	return fmt.Sprintf("emoji_compression_report_%s.json", r.Timestamp.Format("20060102_150405"))
}

// Save writes the report as indented JSON into dir and returns the path
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, r.Filename())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
