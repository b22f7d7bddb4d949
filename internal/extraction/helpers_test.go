package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/job-ingest/internal/llm"
)

// fakeLLM returns canned JSON and counts calls.
type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }

// fakeAI serves results by URL.
type fakeAI struct {
	mu      sync.Mutex
	results map[string]*Result
	calls   int
}

func (f *fakeAI) Extract(_ context.Context, sourceURL, _ string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	res, ok := f.results[sourceURL]
	if !ok {
		return nil, &llm.Error{Kind: llm.ErrProvider, Message: "no canned result"}
	}
	cp := *res
	return &cp, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func careersPage(title, location, description, q1, q2, id string) string {
	return fmt.Sprintf(`<html><head><title>%[1]s</title><script>var x = 1;</script></head><body>
<div class="app"><header class="top">Acme Careers</header>
<div id="posting">
  <h1 class="posting-title">%[1]s</h1>
  <div class="meta"><span class="location">%[2]s</span></div>
  <div class="description"><p>%[3]s</p></div>
  <h3>Requirements</h3>
  <ul class="reqs"><li>%[4]s</li><li>%[5]s</li></ul>
  <a class="apply" href="/jobs/%[6]s/apply">Apply</a>
</div></div>
</body></html>`, title, location, description, q1, q2, id)
}

func fullPostingPage(title, company, location, salary, posted, closing, id string) string {
	return fmt.Sprintf(`<html><head><title>%[1]s</title><meta property="og:site_name" content="%[2]s"></head><body>
<div class="app"><header class="top"><span class="brand">%[2]s</span></header>
<div id="posting">
  <h1 class="posting-title">%[1]s</h1>
  <div class="meta"><span class="location">%[3]s</span> <span class="pay">%[4]s</span></div>
  <p class="dates"><span class="posted">Posted %[5]s</span> <span class="closes">Apply by %[6]s</span></p>
  <div class="description"><p>Build the ingestion platform.</p></div>
  <a class="apply" href="/jobs/%[7]s/apply">Apply</a>
</div></div>
</body></html>`, title, company, location, salary, posted, closing, id)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func float(v float64) *float64 { return &v }

func boolean(v bool) *bool { return &v }
