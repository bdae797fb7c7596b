// Package archive manages the on-disk artifacts of a conversion job: the
// uploaded PDF, the per-page PNG images and the Markdown results. All paths
// live under a single data root with one subdirectory per job.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	uploadsDirName = "uploads"
	pagesDirName   = "pages"
	resultsDirName = "results"

	// ResultFileName is the assembled document inside a job's result dir
	ResultFileName = "result.md"
	// StagedImageName is the fixed name a page image is staged under for
	// the conversion provider
	StagedImageName = "page.png"
)

// pagePattern matches stored page images. Page numbers are zero padded to
// three digits so lexicographic order equals numeric order.
var pagePattern = regexp.MustCompile(`^page-\d+\.png$`)

var jobIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-_]`)

// Archive is the artifact store rooted at a data directory.
type Archive struct {
	dataDir string
}

// New creates the archive and its top-level directories.
func New(dataDir string) (*Archive, error) {
	a := &Archive{dataDir: dataDir}
	for _, dir := range []string{dataDir, a.uploadsDir(), a.pagesDir(), a.resultsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	return a, nil
}

func (a *Archive) uploadsDir() string { return filepath.Join(a.dataDir, uploadsDirName) }
func (a *Archive) pagesDir() string   { return filepath.Join(a.dataDir, pagesDirName) }
func (a *Archive) resultsDir() string { return filepath.Join(a.dataDir, resultsDirName) }

// SanitizeJobID strips every character that is not safe in a path segment.
func SanitizeJobID(jobID string) string {
	return jobIDSanitizer.ReplaceAllString(jobID, "")
}

// PageFileName returns the canonical file name for a 1-based page number.
func PageFileName(page int) string {
	return fmt.Sprintf("page-%03d.png", page)
}

// PageResultFileName returns the per-page Markdown file name.
func PageResultFileName(page int) string {
	return fmt.Sprintf("page-%03d.md", page)
}

// SaveUpload stores the original PDF for display/debugging parity. The
// pipeline never reads it back; pages arrive pre-rasterized.
func (a *Archive) SaveUpload(jobID string, r io.Reader) (string, error) {
	path := filepath.Join(a.uploadsDir(), SanitizeJobID(jobID)+".pdf")
	if err := writeFile(path, r); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// SavePage stores one page image. Re-uploading a page number overwrites the
// previous content, last write wins.
func (a *Archive) SavePage(jobID string, page int, r io.Reader) (string, error) {
	dir := filepath.Join(a.pagesDir(), SanitizeJobID(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create page directory: %w", err)
	}

	path := filepath.Join(dir, PageFileName(page))
	if err := writeFile(path, r); err != nil {
		return "", fmt.Errorf("failed to save page: %w", err)
	}
	return path, nil
}

// ListPages returns the stored page file names for a job in ascending page
// order. The listing, not any previously inferred count, is authoritative
// for what gets converted. A job with no page directory yields an empty
// slice.
func (a *Archive) ListPages(jobID string) ([]string, error) {
	dir := filepath.Join(a.pagesDir(), SanitizeJobID(jobID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var pages []string
	for _, entry := range entries {
		if entry.IsDir() || !pagePattern.MatchString(entry.Name()) {
			continue
		}
		pages = append(pages, entry.Name())
	}
	sort.Strings(pages)
	return pages, nil
}

// PagePath resolves a stored page file name to its absolute path.
func (a *Archive) PagePath(jobID, fileName string) string {
	return filepath.Join(a.pagesDir(), SanitizeJobID(jobID), fileName)
}

// ResultDir returns (and creates) the per-job result directory.
func (a *Archive) ResultDir(jobID string) (string, error) {
	dir := filepath.Join(a.resultsDir(), SanitizeJobID(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create result directory: %w", err)
	}
	return dir, nil
}

// StagePage copies a stored page image into the job's result directory
// under the fixed staged name the provider expects.
func (a *Archive) StagePage(jobID, fileName string) (string, error) {
	dir, err := a.ResultDir(jobID)
	if err != nil {
		return "", err
	}

	src, err := os.Open(a.PagePath(jobID, fileName))
	if err != nil {
		return "", fmt.Errorf("failed to open page image: %w", err)
	}
	defer src.Close()

	staged := filepath.Join(dir, StagedImageName)
	if err := writeFile(staged, src); err != nil {
		return "", fmt.Errorf("failed to stage page image: %w", err)
	}
	return staged, nil
}

// WritePageResult persists the Markdown for one converted page.
func (a *Archive) WritePageResult(jobID string, page int, markdown string) error {
	dir, err := a.ResultDir(jobID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, PageResultFileName(page))
	if err := writeFile(path, strings.NewReader(markdown)); err != nil {
		return fmt.Errorf("failed to write page result: %w", err)
	}
	return nil
}

// WriteResult persists the assembled document and returns its file name,
// which is what the job record stores as resultPath.
func (a *Archive) WriteResult(jobID, markdown string) (string, error) {
	dir, err := a.ResultDir(jobID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ResultFileName)
	if err := writeFile(path, strings.NewReader(markdown)); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	return ResultFileName, nil
}

// ReadResult loads a job's result artifact by its stored relative path.
func (a *Archive) ReadResult(jobID, resultPath string) (string, error) {
	path := filepath.Join(a.resultsDir(), SanitizeJobID(jobID), filepath.Base(resultPath))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read result: %w", err)
	}
	return string(data), nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
