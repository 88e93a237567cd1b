package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/results"
)

var logger = log.ForService("search")

// ErrEmptyQuery is returned by Submit when the text is blank after trimming.
var ErrEmptyQuery = errors.New("empty query")

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

// Scheduler runs fn once after d. The returned function cancels the call and
// reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// RealScheduler schedules with time.AfterFunc.
var RealScheduler Scheduler = timeScheduler{}

// Committer receives committed queries.
type Committer interface {
	Reset(ctx context.Context, query string) error
}

// RecentAdder records committed terms.
type RecentAdder interface {
	Add(ctx context.Context, term string) ([]string, error)
}

type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	Scheduler      Scheduler
}

func (o *Options) applyDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MinQueryLength < 1 {
		o.MinQueryLength = DefaultMinQueryLength
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler
	}
}

type Controller struct {
	opts      Options
	committer Committer
	recent    RecentAdder

	mu        sync.Mutex
	text      string
	committed string
	cancel    func() bool
	seq       uint64
	onCommit  func(string)
	closed    bool
}

// NewController creates a controller. recent may be nil.
func NewController(committer Committer, recent RecentAdder, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		opts:      opts,
		committer: committer,
		recent:    recent,
	}
}

// OnCommit registers fn to run with every committed term, before the
// committer is reset.
func (c *Controller) OnCommit(fn func(query string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCommit = fn
}

// Input records the current text and reschedules the debounced commit.
// Text shorter than the minimum length only cancels a pending commit.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.text = text
	c.cancelLocked()
	if c.closed {
		return
	}

	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) < c.opts.MinQueryLength {
		return
	}

	seq := c.seq
	c.cancel = c.opts.Scheduler.AfterFunc(c.opts.Debounce, func() {
		c.fire(seq, q)
	})
}

// Submit commits text immediately, ignoring the debounce and the minimum
// length. A pending debounced commit is cancelled.
func (c *Controller) Submit(ctx context.Context, text string) error {
	q := strings.TrimSpace(text)
	if q == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	c.text = text
	c.cancelLocked()
	c.mu.Unlock()

	return c.commit(ctx, q)
}

// SubmitCurrent submits the last text given to Input.
func (c *Controller) SubmitCurrent(ctx context.Context) error {
	return c.Submit(ctx, c.Text())
}

// Text returns the raw text last given to Input or Submit.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Committed returns the last committed term.
func (c *Controller) Committed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Pending reports whether a debounced commit is scheduled.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Close cancels any pending commit; later input is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.closed = true
}

// cancelLocked drops the pending commit. Bumping seq also neutralizes a timer
// that already fired and is waiting on the lock.
func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
}

func (c *Controller) fire(seq uint64, q string) {
	c.mu.Lock()
	if seq != c.seq || c.closed {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.mu.Unlock()

	err := c.commit(context.Background(), q)
	if err != nil && !errors.Is(err, results.ErrSuperseded) {
		logger.Warnf("debounced search for %q: %v", q, err)
	}
}

func (c *Controller) commit(ctx context.Context, q string) error {
	c.mu.Lock()
	c.committed = q
	fn := c.onCommit
	c.mu.Unlock()

	logger.Debugf("commit %q", q)
	if c.recent != nil {
		if _, err := c.recent.Add(ctx, q); err != nil {
			logger.Warnf("recording recent search %q: %v", q, err)
		}
	}
	if fn != nil {
		fn(q)
	}
	return c.committer.Reset(ctx, q)
}
