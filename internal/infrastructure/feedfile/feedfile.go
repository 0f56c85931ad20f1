// Package feedfile stores the RSS feed list as a newline-delimited text
// file, editable by hand or through the API.
package feedfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"newsdesk/internal/ports"
	"newsdesk/internal/urlparse"
)

// defaultFeeds seeds the list when no file exists yet.
const defaultFeeds = `# One feed URL per line. Lines starting with # are ignored.
https://feeds.arstechnica.com/arstechnica/index
https://www.theverge.com/rss/index.xml
https://techcrunch.com/feed/
`

// File is a mutex-guarded ports.FeedList over one text file.
type File struct {
	mu   sync.Mutex
	path string
}

var _ ports.FeedList = (*File)(nil)

// NewFile wires the feed list to the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Read returns the raw file content, or the default list when the file
// does not exist yet.
func (f *File) Read(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultFeeds, nil
	}
	if err != nil {
		return "", fmt.Errorf("read feed list: %w", err)
	}
	return string(raw), nil
}

// Write replaces the file content and returns how many feed URLs it now
// contains. Comments and blank lines are preserved verbatim.
func (f *File) Write(_ context.Context, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("write feed list: %w", err)
	}
	return len(parseFeedURLs(text)), nil
}

// URLs returns the usable feed URLs from the current list.
func (f *File) URLs(ctx context.Context) ([]string, error) {
	raw, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	return parseFeedURLs(raw), nil
}

func parseFeedURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !urlparse.IsValid(line) {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
