package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/chatterm/internal/models"
)

// Controller owns one conversation: the message log and the loading gate.
// It is the only writer of the log. Observers receive a snapshot after
// every transition.
type Controller struct {
	remote     Remote
	classifier Classifier
	texts      Texts
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	onFailure  func(err error)

	mu      sync.Mutex
	log     Log
	loading bool
	epoch   uint64 // bumped by Reset; detaches in-flight requests

	observers map[int]func(models.Snapshot)
	nextObs   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithClassifier overrides the intent classifier.
func WithClassifier(c Classifier) Option {
	return func(ctl *Controller) { ctl.classifier = c }
}

// WithTexts overrides the user-facing strings. Empty fields keep their defaults.
func WithTexts(t Texts) Option {
	return func(ctl *Controller) { ctl.texts = t.withDefaults() }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(ctl *Controller) { ctl.now = now }
}

// WithIDGenerator sets the message id source.
func WithIDGenerator(newID func() string) Option {
	return func(ctl *Controller) { ctl.newID = newID }
}

// WithFailureHook sets fn to be called with the cause of every remote failure
// after it has been recorded in the log. fn runs without the session lock.
func WithFailureHook(fn func(err error)) Option {
	return func(ctl *Controller) { ctl.onFailure = fn }
}

// NewController creates an idle session seeded with the greeting message.
func NewController(remote Remote, opts ...Option) *Controller {
	c := &Controller{
		remote:     remote,
		classifier: DefaultClassifier(),
		texts:      DefaultTexts(),
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
		observers:  make(map[int]func(models.Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = NewLog(c.modelMessage(c.texts.Greeting))
	return c
}

// Snapshot returns the current messages and loading flag.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every transition.
// fn runs while the session is locked and must not call back into the Controller.
// The returned func removes the observer.
func (c *Controller) Subscribe(fn func(models.Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Submit sends user input to the model and merges the response into the log.
// It blocks until the request reaches a terminal state.
//
// Returns ErrEmptyInput or ErrBusy when the submission is rejected; the session
// is unchanged in both cases. Remote failures are not returned: they are
// recorded in the log as error messages.
func (c *Controller) Submit(ctx context.Context, input string) error {
	_, err := c.submit(ctx, input)
	return err
}

// Ask submits input like Submit and returns the model message produced by
// this request. Returns ErrReset if the session was reset while the request
// was in flight and no part of the reply reached the new conversation.
func (c *Controller) Ask(ctx context.Context, input string) (models.Message, error) {
	req, err := c.submit(ctx, input)
	if err != nil {
		return models.Message{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if reply, ok := c.log.Find(req.target); ok {
		return reply, nil
	}
	return models.Message{}, ErrReset
}

// request tracks the log entry one submission writes to. target starts as
// the placeholder id and moves when a late result is appended after a reset.
// Guarded by Controller.mu.
type request struct {
	target string
}

func (c *Controller) submit(ctx context.Context, input string) (*request, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	c.log = c.log.Append(models.Message{
		ID:        c.newID(),
		Role:      models.RoleUser,
		Text:      text,
		Timestamp: c.now(),
	})
	c.loading = true
	epoch := c.epoch
	c.publishLocked()

	mode := c.classifier.Classify(text)
	placeholder := c.modelMessage("")
	if mode == ModeImage {
		placeholder.Text = c.texts.Generating
	}
	c.log = c.log.Append(placeholder)
	c.publishLocked()
	c.mu.Unlock()

	req := &request{target: placeholder.ID}
	log := c.logger.With("request_id", placeholder.ID, "mode", mode)
	log.Debug("request dispatched", "prompt_len", len(text))

	defer c.release(epoch)

	start := time.Now()
	err := c.dispatch(ctx, mode, text, req)
	if err != nil {
		log.Error("request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		c.fail(req)
		if c.onFailure != nil {
			c.onFailure(err)
		}
		return req, nil
	}

	log.Debug("request completed", "duration_ms", time.Since(start).Milliseconds())
	return req, nil
}

// Reset discards the conversation, locally and on the remote side, and seeds
// a fresh notice. A request still in flight is detached, not cancelled.
func (c *Controller) Reset() {
	c.remote.ResetConversation()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.log = NewLog(c.modelMessage(c.texts.ResetNotice))
	c.loading = false
	c.publishLocked()

	c.logger.Info("session reset", "epoch", c.epoch)
}

// dispatch runs the remote call for one request. Panics in the remote are
// converted to errors so they take the same path as any other failure.
func (c *Controller) dispatch(ctx context.Context, mode Mode, prompt string, req *request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remote panic: %v", r)
		}
	}()

	if mode == ModeImage {
		return c.generateImage(ctx, prompt, req)
	}
	return c.streamText(ctx, prompt, req)
}

func (c *Controller) generateImage(ctx context.Context, prompt string, req *request) error {
	image, err := c.remote.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}

	if image == "" {
		c.apply(req, TextPatch(c.texts.ImageFailed))
		return nil
	}
	c.apply(req, ImagePatch(c.caption(prompt), image))
	return nil
}

func (c *Controller) streamText(ctx context.Context, prompt string, req *request) error {
	var fold streamFold
	err := c.remote.StreamText(ctx, prompt, func(chunk string) {
		c.apply(req, TextPatch(fold.Add(chunk)))
	})
	if err != nil {
		return fmt.Errorf("stream text after %d chunks: %w", fold.chunks, err)
	}
	return nil
}

// apply merges a patch into the request's target message. A missing target
// means the session was reset while the request was in flight; the result is
// then appended as a new MODEL message which later patches follow.
func (c *Controller) apply(req *request, p Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.log.Mutate(req.target, p)
	if errors.Is(err, ErrNotFound) {
		next, err = c.appendLocked(req, p)
	}
	if err != nil {
		c.logger.Warn("patch dropped", "request_id", req.target, "patch", p.String(), "error", err)
		return
	}
	c.log = next
	c.publishLocked()
}

// fail records a request failure. The target becomes an error entry, or a new
// error entry is appended if the target is gone or can no longer change.
func (c *Controller) fail(req *request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := ErrorPatch(c.texts.ConnectionError)
	next, err := c.log.Mutate(req.target, p)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("placeholder not patchable, appending error", "request_id", req.target, "error", err)
		}
		next, err = c.appendLocked(req, p)
		if err != nil {
			c.logger.Error("error entry not recorded", "request_id", req.target, "error", err)
			return
		}
	}
	c.log = next
	c.publishLocked()
}

// appendLocked adds a fresh MODEL message carrying p and retargets req to it.
// Caller must hold c.mu.
func (c *Controller) appendLocked(req *request, p Patch) (Log, error) {
	msg := c.modelMessage("")
	next, err := c.log.Append(msg).Mutate(msg.ID, p)
	if err != nil {
		return c.log, err
	}
	c.logger.Info("result appended as new message", "request_id", req.target, "message_id", msg.ID, "patch", p.String())
	req.target = msg.ID
	return next, nil
}

// release clears the loading gate unless a Reset has since started a new epoch,
// in which case the gate belongs to the new session.
func (c *Controller) release(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || !c.loading {
		return
	}
	c.loading = false
	c.publishLocked()
}

func (c *Controller) caption(prompt string) string {
	if strings.Count(c.texts.ImageCaption, "%s") != 1 {
		return c.texts.ImageCaption
	}
	return fmt.Sprintf(c.texts.ImageCaption, prompt)
}

func (c *Controller) modelMessage(text string) models.Message {
	return models.Message{
		ID:        c.newID(),
		Role:      models.RoleModel,
		Text:      text,
		Timestamp: c.now(),
	}
}

// Caller must hold c.mu.
func (c *Controller) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		Messages:  c.log.Messages(),
		IsLoading: c.loading,
	}
}

// Caller must hold c.mu.
func (c *Controller) publishLocked() {
	if len(c.observers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, fn := range c.observers {
		fn(snap)
	}
}
