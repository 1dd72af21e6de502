package producer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	downloadTimeout = 5 * time.Minute
	maxLineBytes    = 4 << 20
)

// FileSource reads newline-delimited JSON reports from a local directory and
// can fetch them from a remote archive first.
type FileSource struct {
	dir        string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFileSource creates a FileSource rooted at dir. baseURL is only needed
// for Download.
func NewFileSource(dir, baseURL string, logger *slog.Logger) *FileSource {
	return &FileSource{
		dir:        dir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     logger,
	}
}

// Download fetches <baseURL>/<year>/<month>/<day>.ndjson for each day into
// the source directory, replacing existing files.
func (s *FileSource) Download(ctx context.Context, year int, month string, days []string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}
	for _, day := range days {
		u := fmt.Sprintf("%s/%d/%s/%s.ndjson", s.baseURL, year, month, day)
		dest := filepath.Join(s.dir, fmt.Sprintf("%d-%s-%s.ndjson", year, month, day))
		if err := s.fetch(ctx, u, dest); err != nil {
			return err
		}
		s.logger.Info("downloaded report", "url", u, "path", dest)
	}
	return nil
}

func (s *FileSource) fetch(ctx context.Context, u, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download %s: status %d: %s", u, resp.StatusCode, body)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dest)
}

// Documents returns every non-blank line of every *.ndjson file in the source
// directory, files in lexical order. A line that is not valid JSON is an error.
func (s *FileSource) Documents(ctx context.Context) ([]json.RawMessage, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.ndjson"))
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	sort.Strings(files)

	var docs []json.RawMessage
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileDocs, err := readNDJSON(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func readNDJSON(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var docs []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		if !json.Valid(text) {
			return nil, fmt.Errorf("%s:%d: invalid JSON document", path, line)
		}
		docs = append(docs, json.RawMessage(bytes.Clone(text)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}
