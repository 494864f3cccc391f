package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// RunDir creates a directory for a run's outputs
func (om *OutputManager) RunDir(runID string) (string, error) {
	runDir := filepath.Join(om.BaseOutputDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run output directory: %w", err)
	}
	return runDir, nil
}

// FilePath generates a full path for an output file inside the run
// directory. Path separators in fileName are dropped.
func (om *OutputManager) FilePath(runID, fileName string) (string, error) {
	runDir, err := om.RunDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(runDir, filepath.Base(fileName)), nil
}

// DownloadURL generates a download URL for a file
func (om *OutputManager) DownloadURL(runID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", runID, filepath.Base(fileName))
}

// FileType determines the file type based on extension
func FileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".tsv":
		return "csv"
	case ".json":
		return "json"
	case ".xlsx", ".xlsm", ".xls":
		return "excel"
	case ".gif":
		return "gif"
	case ".mp4":
		return "mp4"
	case ".png":
		return "png"
	case "":
		return "directory"
	default:
		return "unknown"
	}
}

// FileSize returns the size of a file in bytes; directories report the
// total size of the files directly inside them.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if fi, err := e.Info(); err == nil && !fi.IsDir() {
			total += fi.Size()
		}
	}
	return total, nil
}
