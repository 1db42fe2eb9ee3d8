// Package session owns the live studio state: the current session document,
// the last error, and UI preferences. It restores the saved document once,
// persists changes through a debounce timer, and runs the execute action
// against the orchestration engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/chat"
	"github.com/fpang/luxstudio/internal/logging"
	"github.com/fpang/luxstudio/internal/media"
	"github.com/fpang/luxstudio/internal/prefs"
	"github.com/fpang/luxstudio/internal/studio"
)

// DefaultDebounce is the quiet period before a change is persisted.
const DefaultDebounce = 1000 * time.Millisecond

var (
	// ErrNoCredential is returned by actions that need an API key when none is available.
	ErrNoCredential = errors.New("API key not found, please log in again")
	// ErrCredentialRejected is returned when the API refused the key; the key
	// has been cleared and a new login is required.
	ErrCredentialRejected = errors.New("API key is invalid or expired, check its permissions")
)

// Engine is the orchestration engine as seen by the controller.
type Engine interface {
	Analyze(ctx context.Context, credential string, image media.DataURI, prompt string) (string, error)
	Edit(ctx context.Context, credential string, image media.DataURI, instruction string) ([]media.DataURI, error)
	Generate(ctx context.Context, credential, prompt string, ratio studio.AspectRatio, size studio.ImageSize, reference media.DataURI) ([]media.DataURI, error)
	GenerateVideo(ctx context.Context, credential, prompt string, ratio studio.AspectRatio) (string, error)
	Transcribe(ctx context.Context, credential string, audio media.DataURI) (string, error)
}

// Credentials supplies and forgets the API key.
type Credentials interface {
	GetAPIKey(ctx context.Context) (string, error)
	SaveAPIKey(key string) error
	ClearAPIKey() error
}

// Store is the best-effort session store; it never fails.
type Store interface {
	Put(ctx context.Context, session *studio.Session)
	Get(ctx context.Context) *studio.Session
}

// Preferences persists UI preferences synchronously.
type Preferences interface {
	Load() (prefs.Preferences, error)
	SetTheme(t prefs.Theme) error
	SetSidebarCollapsed(collapsed bool) error
}

// Timer is a pending debounce callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc in production.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Debounce  time.Duration
	AfterFunc AfterFunc
}

// View is a consistent snapshot of the controller state.
type View struct {
	Session     studio.Session
	Error       string
	Loading     bool
	Restored    bool
	Preferences prefs.Preferences
}

// Controller is safe for concurrent use.
type Controller struct {
	engine Engine
	creds  Credentials
	store  Store
	prefs  Preferences

	debounce  time.Duration
	afterFunc AfterFunc

	mu         sync.Mutex
	state      studio.Session
	errMsg     string
	loading    int
	restored   bool
	credential string
	signedOut  bool
	ui         prefs.Preferences
	timer      Timer
	generation uint64
}

// New creates a controller holding the default session. Call Restore
// before making changes that should be persisted.
func New(engine Engine, creds Credentials, store Store, preferences Preferences, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &Controller{
		engine:    engine,
		creds:     creds,
		store:     store,
		prefs:     preferences,
		debounce:  opts.Debounce,
		afterFunc: opts.AfterFunc,
		state:     studio.DefaultSession(),
		ui:        prefs.Defaults(),
	}
}

// Restore loads the saved session and preferences. Only the first call has
// any effect; changes made before it are never persisted.
func (c *Controller) Restore(ctx context.Context) {
	c.mu.Lock()
	if c.restored {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	saved := c.store.Get(ctx)
	ui, err := c.prefs.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load preferences, using defaults")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored {
		return
	}
	if saved != nil {
		c.state = c.state.Merge(*saved)
		log.Debug().Str("mode", string(c.state.Mode)).Msg("Session restored")
	}
	c.ui = ui
	c.restored = true
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Session:     c.state,
		Error:       c.errMsg,
		Loading:     c.loading > 0,
		Restored:    c.restored,
		Preferences: c.ui,
	}
}

// Session returns the current session document.
func (c *Controller) Session() studio.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// update applies fn to the state and schedules a save.
func (c *Controller) update(fn func(s *studio.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	c.scheduleLocked()
}

// scheduleLocked replaces any pending save with a new one. Nothing is
// scheduled before Restore.
func (c *Controller) scheduleLocked() {
	if !c.restored {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.generation++
	gen := c.generation
	c.timer = c.afterFunc(c.debounce, func() { c.save(gen) })
}

// save persists the state if gen is still the latest scheduled save.
func (c *Controller) save(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	snapshot := c.state
	c.mu.Unlock()

	c.store.Put(context.Background(), &snapshot)
}

// Flush writes a pending save immediately. Callers use it before exit.
func (c *Controller) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.generation++
	snapshot := c.state
	c.mu.Unlock()

	c.store.Put(ctx, &snapshot)
}

// SetMode switches the workflow.
func (c *Controller) SetMode(m studio.Mode) {
	c.update(func(s *studio.Session) { s.Mode = m })
}

// SetPrompt replaces the prompt text.
func (c *Controller) SetPrompt(p string) {
	c.update(func(s *studio.Session) { s.Prompt = p })
}

// SetUploadedImage replaces the reference image and clears the result.
func (c *Controller) SetUploadedImage(img media.DataURI) {
	c.update(func(s *studio.Session) {
		s.UploadedImage = img
		s.Result = nil
	})
}

// SetResult replaces the result.
func (c *Controller) SetResult(r studio.Result) {
	c.update(func(s *studio.Session) { s.Result = r })
}

// SetAspectRatio selects the output ratio.
func (c *Controller) SetAspectRatio(r studio.AspectRatio) {
	c.update(func(s *studio.Session) { s.AspectRatio = r })
}

// SetImageSize selects the output quality tier.
func (c *Controller) SetImageSize(size studio.ImageSize) {
	c.update(func(s *studio.Session) { s.ImageSize = size })
}

// NewSession clears the image, result, prompt and error. Mode and output
// settings are kept.
func (c *Controller) NewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UploadedImage = ""
	c.state.Result = nil
	c.state.Prompt = ""
	c.errMsg = ""
	c.scheduleLocked()
}

// Login checks and stores key for later actions.
func (c *Controller) Login(key string) error {
	key = strings.TrimSpace(key)
	if err := c.creds.SaveAPIKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	c.credential = key
	c.signedOut = false
	c.errMsg = ""
	c.mu.Unlock()
	return nil
}

// Logout forgets the key and clears the result, image and prompt. The
// persisted record is overwritten by the next save, not deleted. Until the
// next Login, actions fail with ErrNoCredential even when the environment
// still supplies a key.
func (c *Controller) Logout() error {
	err := c.creds.ClearAPIKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = ""
	c.signedOut = true
	c.state.Result = nil
	c.state.UploadedImage = ""
	c.state.Prompt = ""
	c.scheduleLocked()
	return err
}

// SetTheme writes the theme immediately, bypassing the debounce.
func (c *Controller) SetTheme(t prefs.Theme) error {
	if err := c.prefs.SetTheme(t); err != nil {
		return err
	}
	c.mu.Lock()
	c.ui.Theme = t
	c.mu.Unlock()
	return nil
}

// ToggleTheme flips between light and dark.
func (c *Controller) ToggleTheme() (prefs.Theme, error) {
	next := prefs.ThemeDark
	if c.View().Preferences.Theme == prefs.ThemeDark {
		next = prefs.ThemeLight
	}
	return next, c.SetTheme(next)
}

// SetSidebarCollapsed writes the sidebar state immediately.
func (c *Controller) SetSidebarCollapsed(collapsed bool) error {
	if err := c.prefs.SetSidebarCollapsed(collapsed); err != nil {
		return err
	}
	c.mu.Lock()
	c.ui.SidebarCollapsed = collapsed
	c.mu.Unlock()
	return nil
}

func (c *Controller) credentialFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	key, signedOut := c.credential, c.signedOut
	c.mu.Unlock()
	if signedOut {
		return "", ErrNoCredential
	}
	if key != "" {
		return key, nil
	}
	key, err := c.creds.GetAPIKey(ctx)
	if err != nil || key == "" {
		return "", ErrNoCredential
	}
	c.mu.Lock()
	c.credential = key
	c.mu.Unlock()
	return key, nil
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
}

func (c *Controller) end() {
	c.mu.Lock()
	c.loading--
	c.mu.Unlock()
}

// Execute runs the current mode against the engine. The previous result is
// cleared first; on success the new result is stored and, in ANALYZE mode,
// the report also replaces the prompt.
func (c *Controller) Execute(ctx context.Context) (studio.Result, error) {
	credential, err := c.credentialFor(ctx)
	if err != nil {
		c.setError(err.Error())
		return nil, err
	}

	c.mu.Lock()
	req := c.state
	c.errMsg = ""
	c.loading++
	c.state.Result = nil
	c.scheduleLocked()
	c.mu.Unlock()
	defer c.end()

	executionID := uuid.NewString()
	ctx = logging.WithExecution(ctx, executionID, string(req.Mode))
	logger := logging.FromContext(ctx)
	logger.Info().Msg("Executing studio action")

	result, err := c.dispatch(ctx, credential, req)
	if err == nil && (result == nil || result.Kind() != req.Mode.ResultKind()) {
		err = fmt.Errorf("%s produced an unexpected result %T", req.Mode, result)
	}
	if err != nil {
		err = c.fail(ctx, err)
		return nil, err
	}

	c.update(func(s *studio.Session) {
		s.Result = result
		if text, ok := result.(studio.TextResult); ok {
			s.Prompt = text.Text
		}
	})
	logger.Info().Str("result", string(result.Kind())).Msg("Studio action complete")
	return result, nil
}

func (c *Controller) dispatch(ctx context.Context, credential string, req studio.Session) (studio.Result, error) {
	switch req.Mode {
	case studio.ModeAnalyze:
		text, err := c.engine.Analyze(ctx, credential, req.UploadedImage, req.Prompt)
		if err != nil {
			return nil, err
		}
		return studio.TextResult{Text: text}, nil
	case studio.ModeEdit:
		images, err := c.engine.Edit(ctx, credential, req.UploadedImage, req.Prompt)
		if err != nil {
			return nil, err
		}
		return studio.ImagesResult{Images: images}, nil
	case studio.ModeGenerate:
		images, err := c.engine.Generate(ctx, credential, req.Prompt, req.AspectRatio, req.ImageSize, req.UploadedImage)
		if err != nil {
			return nil, err
		}
		return studio.ImagesResult{Images: images}, nil
	case studio.ModeVideo:
		uri, err := c.engine.GenerateVideo(ctx, credential, req.Prompt, req.AspectRatio)
		if err != nil {
			return nil, err
		}
		return studio.VideoResult{URI: uri}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", studio.ErrValidation, req.Mode)
	}
}

// fail records err and, when the API rejected the key outside the video
// billing case, clears the credential so the next action requires a login.
func (c *Controller) fail(ctx context.Context, err error) error {
	logger := logging.FromContext(ctx)
	if chat.IsCredentialRejected(err) && !errors.Is(err, studio.ErrVideoBillingRequired) {
		logger.Warn().Err(err).Msg("API key rejected, clearing credential")
		if clearErr := c.creds.ClearAPIKey(); clearErr != nil {
			logger.Warn().Err(clearErr).Msg("Failed to clear saved API key")
		}
		c.mu.Lock()
		c.credential = ""
		c.signedOut = true
		c.mu.Unlock()
		err = fmt.Errorf("%w: %w", ErrCredentialRejected, err)
		c.setError(ErrCredentialRejected.Error())
		return err
	}
	logger.Error().Err(err).Msg("Studio action failed")
	c.setError(err.Error())
	return err
}

// Dictate transcribes audio and appends the text to the prompt, separated
// by a space when the prompt is not empty.
func (c *Controller) Dictate(ctx context.Context, audio media.DataURI) (string, error) {
	credential, err := c.credentialFor(ctx)
	if err != nil {
		return "", err
	}
	c.begin()
	defer c.end()

	text, err := c.engine.Transcribe(ctx, credential, audio)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Audio transcription failed")
		c.setError("Audio transcription failed.")
		return "", fmt.Errorf("audio transcription failed: %w", err)
	}
	if text == "" {
		return "", nil
	}
	c.update(func(s *studio.Session) {
		if s.Prompt == "" {
			s.Prompt = text
		} else {
			s.Prompt = s.Prompt + " " + text
		}
	})
	return text, nil
}
