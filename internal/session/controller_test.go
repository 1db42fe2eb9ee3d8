package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/prefs"
	"github.com/fpang/luxstudio/internal/studio"
)

// fakeClock records scheduled callbacks; tests fire them explicitly.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireActive runs every callback that has not been stopped.
func (c *fakeClock) fireActive() int {
	c.mu.Lock()
	var active []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			active = append(active, t)
		}
	}
	c.mu.Unlock()
	for _, t := range active {
		t.f()
	}
	return len(active)
}

type fakeStore struct {
	mu     sync.Mutex
	saved  *studio.Session
	writes []studio.Session
}

func (s *fakeStore) Put(_ context.Context, session *studio.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, *session)
}

func (s *fakeStore) Get(context.Context) *studio.Session {
	return s.saved
}

type fakeCreds struct {
	key     string
	cleared int
	// external mimics a key from the environment that ClearAPIKey cannot remove.
	external string
}

func (f *fakeCreds) GetAPIKey(context.Context) (string, error) {
	if f.external != "" {
		return f.external, nil
	}
	if f.key == "" {
		return "", errors.New("no key")
	}
	return f.key, nil
}

func (f *fakeCreds) SaveAPIKey(key string) error {
	f.key = key
	return nil
}

func (f *fakeCreds) ClearAPIKey() error {
	f.key = ""
	f.cleared++
	return nil
}

type fakePrefs struct {
	p      prefs.Preferences
	writes int
}

func (f *fakePrefs) Load() (prefs.Preferences, error) { return f.p, nil }

func (f *fakePrefs) SetTheme(t prefs.Theme) error {
	f.p.Theme = t
	f.writes++
	return nil
}

func (f *fakePrefs) SetSidebarCollapsed(b bool) error {
	f.p.SidebarCollapsed = b
	f.writes++
	return nil
}

type fakeEngine struct {
	analysis   string
	images     []media.DataURI
	video      string
	transcript string
	err        error
	lastPrompt string
}

func (f *fakeEngine) Analyze(_ context.Context, _ string, image media.DataURI, prompt string) (string, error) {
	if image.IsZero() {
		return "", studio.ErrMissingImage
	}
	f.lastPrompt = prompt
	return f.analysis, f.err
}

func (f *fakeEngine) Edit(_ context.Context, _ string, _ media.DataURI, instruction string) ([]media.DataURI, error) {
	f.lastPrompt = instruction
	return f.images, f.err
}

func (f *fakeEngine) Generate(_ context.Context, _ string, prompt string, _ studio.AspectRatio, _ studio.ImageSize, _ media.DataURI) ([]media.DataURI, error) {
	f.lastPrompt = prompt
	return f.images, f.err
}

func (f *fakeEngine) GenerateVideo(_ context.Context, _ string, prompt string, _ studio.AspectRatio) (string, error) {
	f.lastPrompt = prompt
	return f.video, f.err
}

func (f *fakeEngine) Transcribe(context.Context, string, media.DataURI) (string, error) {
	return f.transcript, f.err
}

type harness struct {
	c      *Controller
	clock  *fakeClock
	store  *fakeStore
	creds  *fakeCreds
	prefs  *fakePrefs
	engine *fakeEngine
}

func newHarness(saved *studio.Session) *harness {
	h := &harness{
		clock:  &fakeClock{},
		store:  &fakeStore{saved: saved},
		creds:  &fakeCreds{key: "AIzaTest"},
		prefs:  &fakePrefs{p: prefs.Defaults()},
		engine: &fakeEngine{},
	}
	h.c = New(h.engine, h.creds, h.store, h.prefs, Options{AfterFunc: h.clock.AfterFunc})
	return h
}

var image = media.NewDataURI("image/jpeg", []byte("photo"))

func TestRestore_Additive(t *testing.T) {
	h := newHarness(&studio.Session{Prompt: "x"})
	h.c.Restore(context.Background())

	want := studio.DefaultSession()
	want.Prompt = "x"
	if got := h.c.Session(); got != want {
		t.Errorf("Session = %+v, want %+v", got, want)
	}
	if !h.c.View().Restored {
		t.Error("Restored should be true")
	}
}

func TestRestore_Once(t *testing.T) {
	h := newHarness(&studio.Session{Prompt: "saved"})
	h.c.Restore(context.Background())
	h.c.SetPrompt("edited")
	h.store.saved = &studio.Session{Prompt: "other"}
	h.c.Restore(context.Background())

	if got := h.c.Session().Prompt; got != "edited" {
		t.Errorf("second Restore must be a no-op, prompt = %q", got)
	}
}

func TestNoWritesBeforeRestore(t *testing.T) {
	h := newHarness(nil)
	h.c.SetPrompt("a")
	h.c.SetMode(studio.ModeVideo)
	h.c.Flush(context.Background())

	if n := h.clock.fireActive(); n != 0 {
		t.Errorf("%d saves scheduled before restore", n)
	}
	if len(h.store.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(h.store.writes))
	}
}

func TestDebounceCoalesces(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())

	h.c.SetPrompt("a")
	h.c.SetPrompt("ab")
	h.c.SetAspectRatio(studio.Ratio9x16)
	h.c.SetPrompt("abc")

	if n := h.clock.fireActive(); n != 1 {
		t.Fatalf("active timers = %d, want 1", n)
	}
	if len(h.store.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(h.store.writes))
	}
	got := h.store.writes[0]
	if got.Prompt != "abc" || got.AspectRatio != studio.Ratio9x16 {
		t.Errorf("persisted %+v, want latest state", got)
	}
	for _, tm := range h.clock.timers {
		if tm.d != DefaultDebounce {
			t.Errorf("debounce = %s, want %s", tm.d, DefaultDebounce)
		}
	}
}

func TestStaleTimerDropped(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())
	h.c.SetPrompt("a")
	first := h.clock.timers[0]
	h.c.SetPrompt("b")

	// A superseded callback that fires anyway must not write.
	first.f()
	if len(h.store.writes) != 0 {
		t.Fatalf("stale timer wrote %d times", len(h.store.writes))
	}
	h.clock.fireActive()
	if len(h.store.writes) != 1 || h.store.writes[0].Prompt != "b" {
		t.Errorf("writes = %+v", h.store.writes)
	}
}

func TestFlush(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())
	h.c.SetPrompt("flush me")
	h.c.Flush(context.Background())

	if len(h.store.writes) != 1 || h.store.writes[0].Prompt != "flush me" {
		t.Fatalf("writes = %+v", h.store.writes)
	}
	if n := h.clock.fireActive(); n != 0 {
		t.Errorf("timer still active after flush")
	}
	h.c.Flush(context.Background())
	if len(h.store.writes) != 1 {
		t.Errorf("Flush without pending change wrote again")
	}
}

func TestSetUploadedImageClearsResult(t *testing.T) {
	h := newHarness(&studio.Session{Result: studio.TextResult{Text: "old"}})
	h.c.Restore(context.Background())
	h.c.SetUploadedImage(image)

	s := h.c.Session()
	if s.Result != nil || s.UploadedImage != image {
		t.Errorf("Session = %+v", s)
	}
}

func TestNewSession(t *testing.T) {
	h := newHarness(&studio.Session{
		Mode:          studio.ModeEdit,
		UploadedImage: image,
		Result:        studio.TextResult{Text: "r"},
		Prompt:        "p",
		AspectRatio:   studio.Ratio1x1,
	})
	h.c.Restore(context.Background())
	h.c.NewSession()

	s := h.c.Session()
	if s.UploadedImage != "" || s.Result != nil || s.Prompt != "" {
		t.Errorf("NewSession left %+v", s)
	}
	if s.Mode != studio.ModeEdit || s.AspectRatio != studio.Ratio1x1 {
		t.Errorf("NewSession must keep settings: %+v", s)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(&studio.Session{UploadedImage: image, Prompt: "p", Result: studio.TextResult{Text: "r"}})
	h.c.Restore(context.Background())
	if err := h.c.Logout(); err != nil {
		t.Fatal(err)
	}
	s := h.c.Session()
	if s.UploadedImage != "" || s.Result != nil || s.Prompt != "" {
		t.Errorf("Logout left %+v", s)
	}
	if _, err := h.c.Execute(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Execute after logout = %v, want ErrNoCredential", err)
	}
}

func TestLogout_IgnoresEnvironmentKeyUntilLogin(t *testing.T) {
	h := newHarness(&studio.Session{Mode: studio.ModeGenerate, Prompt: "p"})
	h.creds.external = "AIzaFromEnv"
	h.c.Restore(context.Background())
	if _, err := h.c.Execute(context.Background()); err != nil {
		t.Fatalf("Execute before logout: %v", err)
	}

	if err := h.c.Logout(); err != nil {
		t.Fatal(err)
	}
	h.c.SetPrompt("again")
	if _, err := h.c.Execute(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Execute after logout = %v, want ErrNoCredential", err)
	}
	if _, err := h.c.Dictate(context.Background(), media.NewDataURI("audio/wav", []byte("a"))); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Dictate after logout = %v, want ErrNoCredential", err)
	}

	if err := h.c.Login("AIzaNew"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.c.Execute(context.Background()); err != nil {
		t.Errorf("Execute after login = %v", err)
	}
}

func TestExecute_RejectedEnvironmentKeyStaysRejected(t *testing.T) {
	h := newHarness(&studio.Session{Mode: studio.ModeGenerate, Prompt: "p"})
	h.creds.external = "AIzaFromEnv"
	h.c.Restore(context.Background())
	h.engine.err = genai.APIError{Code: 401, Message: "API key expired"}

	if _, err := h.c.Execute(context.Background()); !errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("Execute = %v, want ErrCredentialRejected", err)
	}
	h.engine.err = nil
	if _, err := h.c.Execute(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("next Execute = %v, want ErrNoCredential", err)
	}
}

func TestExecute_AnalyzeCopiesReportIntoPrompt(t *testing.T) {
	h := newHarness(&studio.Session{UploadedImage: image, Prompt: "critique"})
	h.c.Restore(context.Background())
	h.engine.analysis = "Use softer light."

	res, err := h.c.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res != (studio.TextResult{Text: "Use softer light."}) {
		t.Errorf("result = %+v", res)
	}
	s := h.c.Session()
	if s.Prompt != "Use softer light." || s.Result != res {
		t.Errorf("Session = %+v", s)
	}
	if h.engine.lastPrompt != "critique" {
		t.Errorf("engine got prompt %q", h.engine.lastPrompt)
	}
	if v := h.c.View(); v.Loading || v.Error != "" {
		t.Errorf("View = %+v", v)
	}
}

func TestExecute_ResultKindMatchesMode(t *testing.T) {
	tests := []struct {
		mode studio.Mode
	}{
		{studio.ModeAnalyze},
		{studio.ModeEdit},
		{studio.ModeGenerate},
		{studio.ModeVideo},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			h := newHarness(&studio.Session{Mode: tt.mode, UploadedImage: image, Prompt: "p"})
			h.c.Restore(context.Background())
			h.engine.analysis = "a"
			h.engine.images = []media.DataURI{image}
			h.engine.video = "https://v?key=AIzaTest"

			res, err := h.c.Execute(context.Background())
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if res.Kind() != tt.mode.ResultKind() {
				t.Errorf("result kind = %s, want %s", res.Kind(), tt.mode.ResultKind())
			}
		})
	}
}

func TestExecute_ClearsPreviousResultOnError(t *testing.T) {
	h := newHarness(&studio.Session{Mode: studio.ModeGenerate, Prompt: "p", Result: studio.TextResult{Text: "old"}})
	h.c.Restore(context.Background())
	h.engine.err = errors.New("boom")

	if _, err := h.c.Execute(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	v := h.c.View()
	if v.Session.Result != nil {
		t.Errorf("previous result should be cleared, got %+v", v.Session.Result)
	}
	if v.Error != "boom" {
		t.Errorf("Error = %q", v.Error)
	}
	if h.creds.cleared != 0 {
		t.Error("a generic failure must not clear the credential")
	}
}

func TestExecute_RejectedKeyClearsCredential(t *testing.T) {
	h := newHarness(&studio.Session{Mode: studio.ModeGenerate, Prompt: "p"})
	h.c.Restore(context.Background())
	h.engine.err = genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}

	_, err := h.c.Execute(context.Background())
	if !errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("Execute = %v, want ErrCredentialRejected", err)
	}
	if h.creds.cleared != 1 {
		t.Errorf("ClearAPIKey calls = %d, want 1", h.creds.cleared)
	}
	if _, err := h.c.Execute(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("next Execute = %v, want ErrNoCredential", err)
	}
}

func TestExecute_VideoBillingKeepsCredential(t *testing.T) {
	h := newHarness(&studio.Session{Mode: studio.ModeVideo, Prompt: "p"})
	h.c.Restore(context.Background())
	h.engine.err = errors.Join(studio.ErrVideoBillingRequired, genai.APIError{Code: 403, Message: "denied"})

	_, err := h.c.Execute(context.Background())
	if !errors.Is(err, studio.ErrVideoBillingRequired) || errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("Execute = %v", err)
	}
	if h.creds.cleared != 0 {
		t.Error("billing failure must not clear the credential")
	}
}

func TestExecute_ValidationError(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())

	_, err := h.c.Execute(context.Background())
	if !errors.Is(err, studio.ErrMissingImage) {
		t.Fatalf("Execute = %v, want ErrMissingImage", err)
	}
	if h.c.View().Error == "" {
		t.Error("validation error should be recorded")
	}
}

func TestDictate(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())
	h.engine.transcript = "golden hour"

	if _, err := h.c.Dictate(context.Background(), image); err != nil {
		t.Fatal(err)
	}
	if got := h.c.Session().Prompt; got != "golden hour" {
		t.Errorf("prompt = %q", got)
	}

	h.engine.transcript = "on the beach"
	h.c.Dictate(context.Background(), image)
	if got := h.c.Session().Prompt; got != "golden hour on the beach" {
		t.Errorf("prompt = %q", got)
	}
}

func TestDictate_Error(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())
	h.c.SetPrompt("keep")
	h.engine.err = errors.New("bad audio")

	if _, err := h.c.Dictate(context.Background(), image); err == nil {
		t.Fatal("expected error")
	}
	if h.c.Session().Prompt != "keep" || h.c.View().Error == "" {
		t.Errorf("View = %+v", h.c.View())
	}
}

func TestPreferencesBypassDebounce(t *testing.T) {
	h := newHarness(nil)
	h.c.Restore(context.Background())

	next, err := h.c.ToggleTheme()
	if err != nil || next != prefs.ThemeDark {
		t.Fatalf("ToggleTheme = %q, %v", next, err)
	}
	if err := h.c.SetSidebarCollapsed(true); err != nil {
		t.Fatal(err)
	}
	if h.prefs.writes != 2 {
		t.Errorf("preference writes = %d, want 2", h.prefs.writes)
	}
	if len(h.clock.timers) != 0 {
		t.Error("preferences must not schedule a session save")
	}
	if v := h.c.View().Preferences; v.Theme != prefs.ThemeDark || !v.SidebarCollapsed {
		t.Errorf("Preferences = %+v", v)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(nil)
	h.creds.key = ""
	if err := h.c.Login(" AIzaNew "); err != nil {
		t.Fatal(err)
	}
	if h.creds.key != "AIzaNew" {
		t.Errorf("saved key = %q", h.creds.key)
	}
}
