package fetch

import (
	"context"
	"log/slog"
)

// Fetcher fetches a job page, extracts its main text with platform-aware
// selectors and, when configured, falls back to a headless render for
// thin pages.
type Fetcher struct {
	Options  *Options
	Renderer Renderer
}

// NewFetcher returns a Fetcher. renderer may be nil to disable rendering.
func NewFetcher(opts *Options, renderer Renderer) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Fetcher{Options: opts, Renderer: renderer}
}

// Fetch implements the page fetch used by ingestion.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	result, err := URL(ctx, urlStr, f.Options)
	if err != nil {
		return result, err
	}

	platform := DetectPlatform(urlStr)
	content, noise := Selectors(platform)
	text, err := ExtractMainText(result.HTML, content, noise...)
	if err != nil {
		return result, &Error{URL: urlStr, Message: "content extraction failed", StatusCode: result.StatusCode, Cause: err}
	}
	result.Text = text

	if f.Renderer == nil || (!ClientRendered(platform) && !ShouldUseBrowser(text)) {
		return result, nil
	}

	html, err := f.Renderer.Render(ctx, urlStr)
	if err != nil {
		slog.Warn("browser fallback failed, keeping static HTML", "url", urlStr, "error", err)
		return result, nil
	}
	rendered, err := ExtractMainText(html, content, noise...)
	if err != nil || len(rendered) <= len(text) {
		return result, nil
	}
	result.HTML = html
	result.Text = rendered
	result.Rendered = true
	return result, nil
}
