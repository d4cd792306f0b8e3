package tempmail

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempmailkit/tempmail-go/internal/delivery"
)

// Notice texts shown to the user.
const (
	msgInvalidName     = "Invalid email name. Only letters, numbers, underscores, or hyphens are allowed."
	msgNoNewMessages   = "No new messages found."
	msgPollingComplete = "Polling complete. No new messages found."
	msgNoAddress       = "Please generate an email address first."
)

// Snapshot is a point-in-time copy of a session, for rendering.
type Snapshot struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Messages    []Message `json:"messages"`
	Attempts    int       `json:"polling_attempts"`
	MaxAttempts int       `json:"max_attempts"`
	State       PollState `json:"state"`
	Complete    bool      `json:"polling_complete"`
	Polling     bool      `json:"polling_active"`
	CustomName  string    `json:"custom_name"`
	NameLength  int       `json:"name_length"`
}

// Session holds the state of one interactive user: the current address, the
// messages of its last successful check and the polling progress.
//
// Every remote call of a session is made while holding its lock, so at most
// one call is in flight per session. Waits between polling attempts happen
// outside the lock.
type Session struct {
	id       string
	client   *Client
	interval time.Duration
	notifier Notifier
	logger   *zap.Logger

	mu         sync.Mutex
	address    string
	messages   []Message
	progress   delivery.Progress
	customName string
	nameLength int
	generation uint64
	polling    bool
	stopPoll   func()
	closed     bool
}

// NewSession creates a session. It has no address unless WithAddress is
// given.
func NewSession(client *Client, opts ...SessionOption) *Session {
	cfg := &sessionConfig{
		maxAttempts:  DefaultMaxAttempts,
		pollInterval: DefaultPollInterval,
		nameLength:   DefaultNameLength,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.pollInterval < 0 {
		cfg.pollInterval = DefaultPollInterval
	}
	if cfg.notifier == nil {
		cfg.notifier = discardNotifier{}
	}
	if cfg.logger == nil {
		cfg.logger = client.logger
	}

	return &Session{
		id:         cfg.id,
		address:    cfg.address,
		client:     client,
		interval:   cfg.pollInterval,
		notifier:   cfg.notifier,
		logger:     cfg.logger.With(zap.String("session", cfg.id)),
		progress:   delivery.NewProgress(cfg.maxAttempts),
		nameLength: ClampNameLength(cfg.nameLength),
		generation: 1,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Address returns the current address, or "" before the first allocation.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := slices.Clone(s.messages)
	if messages == nil {
		messages = []Message{}
	}
	return Snapshot{
		ID:          s.id,
		Address:     s.address,
		Messages:    messages,
		Attempts:    s.progress.Attempts,
		MaxAttempts: s.progress.MaxAttempts,
		State:       s.progress.State,
		Complete:    s.progress.Complete(),
		Polling:     s.polling,
		CustomName:  s.customName,
		NameLength:  s.nameLength,
	}
}

// SetNameLength sets the length used for random local-parts, clamped to
// [MinNameLength, MaxNameLength]. It returns the stored value.
func (s *Session) SetNameLength(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameLength = ClampNameLength(n)
	return s.nameLength
}

// Domains lists the available domains. A failure is reported to the
// notifier and yields an empty slice.
func (s *Session) Domains(ctx context.Context) []Domain {
	s.mu.Lock()
	domains, err := s.client.ListDomains(ctx)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("list domains failed", zap.Error(err))
		s.notify(LevelError, "Error fetching domains: "+err.Error())
		return []Domain{}
	}
	return domains
}

// Generate allocates a new address on domain. An empty customName picks a
// random local-part of the session's name length. customName is validated
// as given, so surrounding whitespace makes it invalid; the trimmed input is
// kept as the pending custom name.
//
// An invalid customName fails with a *ValidationError before any request is
// made. A remote failure leaves the address and messages untouched. On
// success any running poll is stopped and the messages and polling progress
// are reset before the new address becomes visible.
func (s *Session) Generate(ctx context.Context, domain, customName string) (string, error) {
	name := customName

	s.mu.Lock()
	s.customName = strings.TrimSpace(customName)
	if name != "" && !ValidateEmailName(name) {
		s.mu.Unlock()
		s.notify(LevelError, msgInvalidName)
		return "", &ValidationError{Name: name}
	}
	if name == "" {
		name = RandomWord(s.nameLength)
	}

	address, err := s.client.GenerateEmail(ctx, domain, name)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("generate email failed", zap.String("domain", domain), zap.Error(err))
		s.notify(LevelError, "Error generating email: "+err.Error())
		return "", err
	}

	stop := s.stopPoll
	s.stopPoll = nil
	s.polling = false
	s.generation++
	s.address = address
	s.messages = nil
	s.progress.Reset()
	s.customName = ""
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.notify(LevelSuccess, "Generated Temp Email: "+address)
	return address, nil
}

// Poll runs the polling loop for the current address on the calling
// goroutine. It returns nil once polling is complete, immediately if it
// already was. ctx interrupts the wait between attempts. If the address is
// replaced meanwhile, Poll returns ErrStalePoll.
func (s *Session) Poll(ctx context.Context) error {
	gen, err := s.beginPolling()
	if err != nil || gen == 0 {
		return err
	}
	err = delivery.Run(ctx, s.interval, s.attempt(gen))
	s.endPolling(gen, err)
	return err
}

// StartPolling runs the polling loop for the current address as timer
// tasks and returns at once. It reports false when polling is already
// complete for this address. The run is stopped by Close, by a new
// allocation or when ctx ends, so ctx should outlive the request that
// started it.
func (s *Session) StartPolling(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, err := s.beginPollingLocked()
	if err != nil || gen == 0 {
		return false, err
	}
	s.stopPoll = delivery.Schedule(ctx, s.interval, s.attempt(gen), func(err error) {
		s.endPolling(gen, err)
	})
	return true, nil
}

// CheckNow makes one manual check outside the polling budget. A non-empty
// result replaces the stored messages; the polling progress is untouched.
// A failure is reported to the notifier and yields an empty slice.
func (s *Session) CheckNow(ctx context.Context) []Message {
	s.mu.Lock()
	if s.address == "" {
		s.mu.Unlock()
		s.notify(LevelInfo, msgNoAddress)
		return []Message{}
	}
	messages, err := s.client.CheckMessages(ctx, s.address)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("manual check failed", zap.Error(err))
		s.notify(LevelError, "Error fetching messages: "+err.Error())
		return []Message{}
	}
	if len(messages) == 0 {
		s.mu.Unlock()
		s.notify(LevelInfo, msgNoNewMessages)
		return []Message{}
	}
	s.messages = messages
	s.mu.Unlock()

	s.notify(LevelSuccess, foundText(len(messages)))
	return slices.Clone(messages)
}

// Close stops scheduled polling. The session keeps its state and may still
// be read.
func (s *Session) Close() {
	s.mu.Lock()
	stop := s.stopPoll
	s.stopPoll = nil
	s.closed = true
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Session) beginPolling() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginPollingLocked()
}

// beginPollingLocked marks polling as running and returns the current
// generation, or 0 when there is nothing left to poll. Generations start at 1.
func (s *Session) beginPollingLocked() (uint64, error) {
	switch {
	case s.closed:
		return 0, ErrSessionClosed
	case s.address == "":
		return 0, ErrNoAddress
	case s.polling:
		return 0, ErrPollInProgress
	case !s.progress.CanPoll():
		return 0, nil
	}
	s.polling = true
	return s.generation, nil
}

func (s *Session) endPolling(gen uint64, err error) {
	s.mu.Lock()
	if s.generation == gen {
		s.polling = false
		s.stopPoll = nil
		s.progress.Pause()
	}
	s.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, ErrStalePoll):
		s.logger.Debug("polling stopped", zap.Error(err))
	default:
		s.logger.Warn("polling aborted", zap.Error(err))
	}
}

// attempt returns the step function for the address of generation gen.
func (s *Session) attempt(gen uint64) delivery.Attempt {
	return func(ctx context.Context) (bool, error) {
		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			return true, ErrStalePoll
		}
		n, ok := s.progress.Begin()
		if !ok {
			s.mu.Unlock()
			return true, nil
		}

		var notices []Notice
		messages, err := s.client.CheckMessages(ctx, s.address)
		if err != nil {
			if ctx.Err() != nil {
				s.progress.Abandon()
				s.mu.Unlock()
				return true, ctx.Err()
			}
			s.logger.Warn("poll attempt failed", zap.Int("attempt", n), zap.Error(err))
			notices = append(notices, Notice{Level: LevelError, Text: "Error fetching messages: " + err.Error()})
		}

		found := len(messages) > 0
		if found {
			s.messages = messages
		}
		s.progress.Record(found)

		budget := s.progress.MaxAttempts
		switch {
		case found:
			s.client.metrics.ObservePollAttempt("found")
			notices = append(notices, Notice{Level: LevelSuccess, Text: foundText(len(messages))})
		case s.progress.State == delivery.StateExhausted:
			s.client.metrics.ObservePollAttempt("exhausted")
			notices = append(notices,
				Notice{Level: LevelInfo, Text: fmt.Sprintf("No new messages... (Attempt %d of %d)", n, budget)},
				Notice{Level: LevelInfo, Text: msgPollingComplete},
			)
		default:
			s.client.metrics.ObservePollAttempt("empty")
			notices = append(notices, Notice{Level: LevelInfo, Text: fmt.Sprintf("No new messages... (Attempt %d of %d)", n, budget)})
		}
		done := s.progress.Complete()
		s.mu.Unlock()

		for _, notice := range notices {
			s.notifier.Notify(notice)
		}
		return done, nil
	}
}

func (s *Session) notify(level Level, text string) {
	s.notifier.Notify(Notice{Level: level, Text: text})
}

func foundText(n int) string {
	return fmt.Sprintf("%d new message(s) found", n)
}
