package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tablewatch/tablewatch/models"
)

// fakeFetcher serves canned captures or errors per URL.
type fakeFetcher struct {
	mu       sync.Mutex
	captures map[string]*models.PageCapture
	errs     map[string]error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, targetURL, proxy string) (*models.PageCapture, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.maxSeen.Load()
		if cur <= old || f.maxSeen.CompareAndSwap(old, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[targetURL]; ok {
		return nil, err
	}
	if capture, ok := f.captures[targetURL]; ok {
		return capture, nil
	}
	return &models.PageCapture{HTML: "<html></html>", Status: intp(200)}, nil
}

// fakeStore records saved outcomes.
type fakeStore struct {
	mu    sync.Mutex
	saved []*models.ScrapeOutcome
}

func (s *fakeStore) SaveOutcome(ctx context.Context, o *models.ScrapeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, o)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fakeAlerter counts alerts per message.
type fakeAlerter struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (a *fakeAlerter) Alert(severity models.Severity, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, models.AlertEvent{Severity: severity, Message: message})
}

func (a *fakeAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func newTestDispatcher(f Fetcher, s ResultStore, a Alerter, maxSessions int) *Dispatcher {
	return NewDispatcher(f, s, a, nil, Config{
		NavigationTimeout: 5 * time.Second,
		MaxSessions:       maxSessions,
	})
}

func targets(urls ...string) []models.ScrapeTarget {
	out := make([]models.ScrapeTarget, len(urls))
	for i, u := range urls {
		out[i] = models.ScrapeTarget{URL: u}
	}
	return out
}

func TestDispatch_EmptyBatch(t *testing.T) {
	d := newTestDispatcher(&fakeFetcher{}, nil, nil, 0)

	_, err := d.Dispatch(context.Background(), nil)
	if err == nil {
		t.Fatal("empty batch should fail")
	}
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeInvalidInput {
		t.Errorf("want %s, got %v", models.ErrCodeInvalidInput, err)
	}
}

func TestDispatch_OneOutcomePerTarget(t *testing.T) {
	d := newTestDispatcher(&fakeFetcher{}, nil, nil, 0)

	in := targets("https://a.test", "https://b.test", "https://c.test", "https://d.test")
	outcomes, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != len(in) {
		t.Fatalf("got %d outcomes for %d targets", len(outcomes), len(in))
	}

	seen := make(map[string]bool)
	for _, o := range outcomes {
		seen[o.URL] = true
	}
	for _, target := range in {
		if !seen[target.URL] {
			t.Errorf("no outcome for target %s", target.URL)
		}
	}
}

func TestDispatch_FailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			"https://broken.test": errors.New("net::ERR_NAME_NOT_RESOLVED"),
		},
	}
	alerter := &fakeAlerter{}
	d := newTestDispatcher(fetcher, nil, alerter, 0)

	outcomes, err := d.Dispatch(context.Background(),
		targets("https://ok.test", "https://broken.test", "https://also-ok.test"))
	if err != nil {
		t.Fatalf("a failing target must not abort the batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	byURL := make(map[string]*models.ScrapeOutcome)
	for _, o := range outcomes {
		byURL[o.URL] = o
	}
	if v := byURL["https://broken.test"].Verdict; v != models.VerdictError {
		t.Errorf("broken target verdict = %q, want error", v)
	}
	if byURL["https://broken.test"].ErrorMessage == "" {
		t.Error("error outcome must carry a message")
	}
	for _, u := range []string{"https://ok.test", "https://also-ok.test"} {
		if v := byURL[u].Verdict; v != models.VerdictOK {
			t.Errorf("sibling %s verdict = %q, want ok", u, v)
		}
	}
	if got := alerter.count(); got != 1 {
		t.Errorf("got %d alerts, want exactly 1 (for the failed target)", got)
	}
}

func TestDispatch_AlertsPerVerdict(t *testing.T) {
	fetcher := &fakeFetcher{
		captures: map[string]*models.PageCapture{
			"https://ok.test":      {HTML: "<html>fine</html>", Status: intp(200)},
			"https://blocked.test": {HTML: "<html>denied</html>", Status: intp(403)},
			"https://captcha.test": {HTML: "<html>captcha here</html>", Status: intp(200)},
		},
		errs: map[string]error{
			"https://error.test": errors.New("timeout"),
		},
	}
	alerter := &fakeAlerter{}
	d := newTestDispatcher(fetcher, nil, alerter, 0)

	_, err := d.Dispatch(context.Background(),
		targets("https://ok.test", "https://blocked.test", "https://captcha.test", "https://error.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One alert each for blocked, captcha, error; none for ok.
	if got := alerter.count(); got != 3 {
		t.Fatalf("got %d alerts, want 3", got)
	}
	for _, e := range alerter.events {
		if strings.Contains(e.Message, "https://ok.test") {
			t.Errorf("ok verdict must not alert, got %q", e.Message)
		}
	}
}

func TestDispatch_PersistsNonErrorOnly(t *testing.T) {
	fetcher := &fakeFetcher{
		captures: map[string]*models.PageCapture{
			"https://ok.test":      {HTML: "<html>fine</html>", Status: intp(200)},
			"https://blocked.test": {HTML: "<html>denied</html>", Status: intp(429)},
		},
		errs: map[string]error{
			"https://error.test": errors.New("crash"),
		},
	}
	st := &fakeStore{}
	d := newTestDispatcher(fetcher, st, nil, 0)

	_, err := d.Dispatch(context.Background(),
		targets("https://ok.test", "https://blocked.test", "https://error.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Drain()

	if got := st.count(); got != 2 {
		t.Fatalf("persisted %d outcomes, want 2 (ok + blocked, never error)", got)
	}
	for _, o := range st.saved {
		if o.Verdict == models.VerdictError {
			t.Errorf("error outcome must not be persisted: %s", o.URL)
		}
	}
}

func TestDispatch_PreviewOnBlocked(t *testing.T) {
	body := "<html>" + strings.Repeat("captcha ", 200) + "</html>"
	fetcher := &fakeFetcher{
		captures: map[string]*models.PageCapture{
			"https://captcha.test": {HTML: body, Status: intp(200)},
		},
	}
	d := newTestDispatcher(fetcher, nil, nil, 0)

	outcomes, err := d.Dispatch(context.Background(), targets("https://captcha.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := outcomes[0]
	if o.Verdict != models.VerdictCaptcha {
		t.Fatalf("verdict = %q, want captcha", o.Verdict)
	}
	if o.HTML != "" {
		t.Error("captcha outcome must not carry the full body")
	}
	if len(o.HTMLPreview) > PreviewLimit {
		t.Errorf("preview length %d exceeds %d", len(o.HTMLPreview), PreviewLimit)
	}
	if !strings.HasPrefix(body, o.HTMLPreview) {
		t.Error("preview is not a prefix of the original body")
	}
}

// hangingFetcher blocks selected URLs until the deadline fires, then reports
// the timeout the way the browser layer does.
type hangingFetcher struct {
	hang map[string]bool
}

func (f *hangingFetcher) Fetch(ctx context.Context, targetURL, proxy string) (*models.PageCapture, error) {
	if f.hang[targetURL] {
		<-ctx.Done()
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "navigation timed out", ctx.Err())
	}
	return &models.PageCapture{HTML: "<html>fine</html>", Status: intp(200)}, nil
}

func TestDispatch_NavigationTimeout(t *testing.T) {
	fetcher := &hangingFetcher{hang: map[string]bool{"https://stuck.test": true}}
	alerter := &fakeAlerter{}
	d := NewDispatcher(fetcher, nil, alerter, nil, Config{
		NavigationTimeout: 30 * time.Millisecond,
	})

	outcomes, err := d.Dispatch(context.Background(),
		targets("https://stuck.test", "https://fast.test"))
	if err != nil {
		t.Fatalf("a timed-out target must not abort the batch: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}

	byURL := make(map[string]*models.ScrapeOutcome)
	for _, o := range outcomes {
		byURL[o.URL] = o
	}

	stuck := byURL["https://stuck.test"]
	if stuck.Verdict != models.VerdictError {
		t.Errorf("timed-out target verdict = %q, want error", stuck.Verdict)
	}
	if !strings.Contains(stuck.ErrorMessage, "timed out") &&
		!strings.Contains(stuck.ErrorMessage, "deadline") {
		t.Errorf("error message %q does not convey the timeout", stuck.ErrorMessage)
	}
	if v := byURL["https://fast.test"].Verdict; v != models.VerdictOK {
		t.Errorf("sibling verdict = %q, want ok", v)
	}
	if got := alerter.count(); got != 1 {
		t.Errorf("got %d alerts, want exactly 1 (for the timed-out target)", got)
	}
}

func TestDispatch_SessionBound(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	d := newTestDispatcher(fetcher, nil, nil, 2)

	in := targets(
		"https://1.test", "https://2.test", "https://3.test",
		"https://4.test", "https://5.test", "https://6.test",
	)
	if _, err := d.Dispatch(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak := fetcher.maxSeen.Load(); peak > 2 {
		t.Errorf("observed %d concurrent sessions, bound is 2", peak)
	}
}

func TestDispatch_NilProxyAndStatus(t *testing.T) {
	fetcher := &fakeFetcher{
		captures: map[string]*models.PageCapture{
			"https://nostatus.test": {HTML: "<html>fine</html>", Status: nil},
		},
	}
	d := newTestDispatcher(fetcher, nil, nil, 0)

	outcomes, err := d.Dispatch(context.Background(), targets("https://nostatus.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := outcomes[0]
	if o.Status != nil {
		t.Errorf("status should be absent, got %d", *o.Status)
	}
	if o.Verdict != models.VerdictOK {
		t.Errorf("missing status alone must not change the verdict, got %q", o.Verdict)
	}
}

func TestFormatStatus(t *testing.T) {
	if got := formatStatus(nil); got != "none" {
		t.Errorf("formatStatus(nil) = %q, want none", got)
	}
	if got := formatStatus(intp(403)); got != "403" {
		t.Errorf("formatStatus(403) = %q", got)
	}
	if got := formatStatus(intp(429)); got != "429" {
		t.Errorf("formatStatus(429) = %q", got)
	}
}
