package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"go.uber.org/zap"
)

const defaultReadSize = 4096

// Provider opens a streaming completion and returns the raw response body.
type Provider interface {
	StreamTranslate(ctx context.Context, systemPrompt, content string) (io.ReadCloser, error)
}

// Store persists the final translation.
type Store interface {
	Update(ctx context.Context, id string, fields map[string]any) error
}

// Broadcaster fans an event out to a room.
type Broadcaster interface {
	Broadcast(roomID string, ev types.Event)
}

// Archiver keeps a copy of every finished translation outside the database.
type Archiver interface {
	ArchiveTranslation(ctx context.Context, messageID, roomID, content, translation string) (string, error)
}

// Job identifies the message a session translates and where updates go.
type Job struct {
	MessageID string
	RoomID    string
	Content   string
}

type Option func(*Translator)

func WithArchiver(a Archiver) Option {
	return func(t *Translator) { t.archiver = a }
}

// WithReadSize bounds how many bytes one read from the provider may return.
func WithReadSize(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.readSize = n
		}
	}
}

// WithMaxLine bounds how long a stream line may grow before the session is
// aborted as a provider failure.
func WithMaxLine(n int) Option {
	return func(t *Translator) { t.maxLine = n }
}

// Translator runs translation sessions, at most one per message id.
type Translator struct {
	provider     Provider
	store        Store
	rooms        Broadcaster
	archiver     Archiver
	systemPrompt string
	readSize     int
	maxLine      int

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

func NewTranslator(provider Provider, store Store, rooms Broadcaster, systemPrompt string, opts ...Option) *Translator {
	t := &Translator{
		provider:     provider,
		store:        store,
		rooms:        rooms,
		systemPrompt: systemPrompt,
		readSize:     defaultReadSize,
		active:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start drives the session in its own goroutine. The session is detached
// from ctx cancellation: a client leaving does not stop the room's translation.
func (t *Translator) Start(ctx context.Context, job Job) error {
	if err := t.reserve(job.MessageID); err != nil {
		return err
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.release(job.MessageID)
		t.run(context.WithoutCancel(ctx), job)
	}()
	return nil
}

// Run drives the session on the calling goroutine.
func (t *Translator) Run(ctx context.Context, job Job) error {
	if err := t.reserve(job.MessageID); err != nil {
		return err
	}
	defer t.release(job.MessageID)
	t.run(ctx, job)
	return nil
}

// Wait blocks until every session started with Start has ended.
func (t *Translator) Wait() {
	t.wg.Wait()
}

func (t *Translator) Active(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[messageID]
	return ok
}

func (t *Translator) reserve(messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[messageID]; ok {
		return fmt.Errorf("%w: %s", lerrors.ErrSessionActive, messageID)
	}
	t.active[messageID] = struct{}{}
	return nil
}

func (t *Translator) release(messageID string) {
	t.mu.Lock()
	delete(t.active, messageID)
	t.mu.Unlock()
}

func (t *Translator) run(ctx context.Context, job Job) {
	defer logging.LogDuration(ctx, "translate_stream")()

	body, err := t.provider.StreamTranslate(ctx, t.systemPrompt, job.Content)
	if err != nil {
		logging.ErrorLogger.Error("translation stream not opened",
			zap.String("message_id", job.MessageID), zap.Error(err))
		return
	}
	defer body.Close()
	logging.AppLogger.Info("translation stream opened", zap.String("message_id", job.MessageID))

	r := Reassembler{MaxLine: t.maxLine}
	buf := make([]byte, t.readSize)
	for !r.Finished() {
		n, err := body.Read(buf)
		if n > 0 {
			r.Feed(buf[:n])
			if err := r.Err(); err != nil {
				logging.ErrorLogger.Error("translation stream aborted",
					zap.String("message_id", job.MessageID),
					zap.Int("partial_len", len(r.Text())),
					zap.Error(err))
				return
			}
			t.publish(job, r.Text())
		}
		if errors.Is(err, io.EOF) {
			// provider closed without the sentinel, which also ends the stream
			r.Flush()
			break
		}
		if err != nil {
			logging.ErrorLogger.Error("translation stream aborted",
				zap.String("message_id", job.MessageID),
				zap.Int("partial_len", len(r.Text())),
				zap.Error(fmt.Errorf("%w: %v", lerrors.ErrProvider, err)))
			return
		}
	}
	t.finalize(ctx, job, r.Text())
}

func (t *Translator) finalize(ctx context.Context, job Job, text string) {
	err := t.store.Update(ctx, job.MessageID, map[string]any{
		models.ColumnStatus:   models.StatusComplete,
		models.ColumnTContent: text,
	})
	if err != nil {
		// the room already saw the text, so the update still goes out
		logging.ErrorLogger.Error("translation not persisted",
			zap.String("message_id", job.MessageID), zap.Error(err))
	}
	t.publish(job, text)
	logging.AppLogger.Info("translation complete",
		zap.String("message_id", job.MessageID), zap.Int("len", len(text)))

	if t.archiver == nil {
		return
	}
	if _, err := t.archiver.ArchiveTranslation(ctx, job.MessageID, job.RoomID, job.Content, text); err != nil {
		logging.ErrorLogger.Error("translation not archived",
			zap.String("message_id", job.MessageID), zap.Error(err))
	}
}

func (t *Translator) publish(job Job, text string) {
	t.rooms.Broadcast(job.RoomID, types.Event{
		Name:    types.EventGroupTranslateMessage,
		Payload: types.OK("", types.TranslationUpdate{TContent: text, ID: job.MessageID}),
	})
}
