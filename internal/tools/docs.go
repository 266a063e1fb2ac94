package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const maxPageChars = 50000

// PageFetcher fetches a documentation page and converts its HTML to markdown.
// It backs the documentation-lookup side channel; the agent loop itself never
// calls it.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher creates a PageFetcher.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchPage fetches the URL and returns its content as markdown, truncated
// at maxPageChars.
func (f *PageFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Gitscout/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	if len(md) > maxPageChars {
		md = md[:maxPageChars] + "\n\n[Content truncated]"
	}

	return md, nil
}
