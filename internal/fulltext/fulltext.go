// Package fulltext turns a paper identifier into clean, chunked text ready
// for embedding: download the source PDF, extract its text, scrub PDF and
// LaTeX artifacts, and split into fixed-size overlapping chunks.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Fetch and extraction failures are distinguished so the indexing layer can
// classify them without parsing messages.
var (
	// ErrFetch indicates the source document could not be downloaded.
	ErrFetch = errors.New("source document fetch failed")

	// ErrExtract indicates the downloaded document could not be parsed.
	ErrExtract = errors.New("source document extraction failed")
)

const (
	// DefaultChunkSize is the maximum chunk length in characters
	// (~300 tokens).
	DefaultChunkSize = 1500

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 200

	// maxPDFBytes bounds the downloaded document size. Papers above this
	// are treated as fetch failures rather than exhausting memory.
	maxPDFBytes = 64 << 20 // 64 MiB

	// defaultFetchTimeout bounds one PDF download.
	defaultFetchTimeout = 60 * time.Second
)

// DefaultSourceURL is the download location pattern for arXiv PDFs.
const DefaultSourceURL = "https://arxiv.org/pdf/%s.pdf"

// Service fetches and extracts full text for papers.
//
// Downloads are rate limited; arXiv asks automated clients to stay well
// below one request per second sustained.
type Service struct {
	client    *http.Client
	limiter   *rate.Limiter
	urlFormat string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithSourceURL overrides the PDF location pattern. The pattern must
// contain exactly one %s verb for the paper identifier.
func WithSourceURL(format string) Option {
	return func(s *Service) { s.urlFormat = format }
}

// WithRateLimit overrides the download rate limit.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Service) { s.limiter = rate.NewLimiter(r, burst) }
}

// NewService creates a full-text service with arXiv defaults: one download
// every three seconds, 60 second per-request timeout.
func NewService(logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		limiter:   rate.NewLimiter(rate.Every(3*time.Second), 1),
		urlFormat: DefaultSourceURL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Text downloads and extracts the full text of one paper. The returned
// text is raw extraction output; callers run Clean and Split on it.
func (s *Service) Text(ctx context.Context, paperID string) (string, error) {
	data, err := s.fetch(ctx, paperID)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(data)
	if err != nil {
		return "", fmt.Errorf("%w: paper %s: %v", ErrExtract, paperID, err)
	}

	s.logger.Debug("extracted full text", "paper_id", paperID,
		"pdf_bytes", len(data), "text_chars", len(text))
	return text, nil
}

// fetch downloads the source PDF, honoring the rate limit and context.
func (s *Service) fetch(ctx context.Context, paperID string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: paper %s: %v", ErrFetch, paperID, err)
	}

	url := fmt.Sprintf(s.urlFormat, paperID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: paper %s: %v", ErrFetch, paperID, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: paper %s: %v", ErrFetch, paperID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: paper %s: unexpected status %d", ErrFetch, paperID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: paper %s: reading body: %v", ErrFetch, paperID, err)
	}
	if len(data) > maxPDFBytes {
		return nil, fmt.Errorf("%w: paper %s: document exceeds %d bytes", ErrFetch, paperID, maxPDFBytes)
	}
	return data, nil
}
