package books

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"mybooks/internal/codec"
	"mybooks/internal/models"
	"mybooks/internal/storage"
)

// Store holds the book collection in memory and writes every change
// through to storage before notifying subscribers.
//
// Mutations are serialized and subscribers see them in mutation order.
// Events are delivered by whichever caller finds delivery idle, which then
// drains the queue; a call made while another delivery is running only
// queues its event. Callbacks may read, mutate and subscribe: an event
// raised from inside a callback is delivered after that callback returns.
type Store struct {
	mu      sync.RWMutex
	books   []models.Book
	storage storage.Storage
	key     string
	logger  *zap.Logger
	now     func() time.Time
	loc     *time.Location

	// seq numbers every state change and subscription under mu; events are
	// queued under mu too, so the queue is in seq order.
	seq        uint64
	deliverMu  sync.Mutex
	pending    []event
	delivering bool

	subsMu sync.Mutex
	subs   []subscriber
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key (default "mybooks").
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithClock overrides the time source used by MarkAsReading.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the time zone MarkAsReading dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a store and loads the collection once from st. A missing,
// unreadable or unparseable value yields an empty collection.
func New(ctx context.Context, st storage.Storage, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		storage: st,
		key:     storage.DefaultKey,
		logger:  logger,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.books = s.load(ctx)
	s.logger.Info("Book collection loaded",
		zap.String("key", s.key),
		zap.Int("books", len(s.books)),
	)
	return s
}

func (s *Store) load(ctx context.Context) []models.Book {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to read book collection, starting empty",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return []models.Book{}
	}

	books, issues, err := codec.DecodeReport(raw, ok)
	if err != nil {
		record := -1
		var parseErr *codec.ParseError
		if errors.As(err, &parseErr) {
			record = parseErr.Index
		}
		s.logger.Warn("Stored book collection is not valid, starting empty",
			zap.String("key", s.key),
			zap.Int("record", record),
			zap.Error(err),
		)
		s.backup(ctx, raw)
		return []models.Book{}
	}
	for _, issue := range issues {
		s.logger.Warn("Book field has unexpected type, value coerced",
			zap.String("key", s.key),
			zap.Int("record", issue.Index),
			zap.String("field", issue.Key),
			zap.ByteString("value", issue.Value),
		)
	}
	return books
}

// backup keeps an unparseable value next to the real key so the first
// write after a failed load does not destroy it.
func (s *Store) backup(ctx context.Context, raw string) {
	backupKey := s.key + ".bak"
	if err := s.storage.Set(ctx, backupKey, raw); err != nil {
		s.logger.Error("Failed to back up unparseable collection",
			zap.String("key", backupKey),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Unparseable collection backed up", zap.String("key", backupKey))
}

// Key returns the storage key the collection lives under.
func (s *Store) Key() string { return s.key }

// Books returns a snapshot of the collection in order.
func (s *Store) Books() []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.books)
}

// Book returns the record with id.
func (s *Store) Book(id models.ID) (models.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.books, id); i >= 0 {
		return s.books[i].Clone(), true
	}
	return models.Book{}, false
}

// ResolveID maps user input to an id in the collection. Digits parse as a
// numeric id, but when no such record exists and a string id with the
// same text does, that one is returned.
func (s *Store) ResolveID(text string) models.ID {
	id := models.ParseID(text)
	if !id.IsNumeric() {
		return id
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if indexOf(s.books, id) < 0 {
		if alt := models.StringID(text); indexOf(s.books, alt) >= 0 {
			return alt
		}
	}
	return id
}

// Len returns the number of books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// AddBook appends book as given, including its State and Favorite. It is a
// no-op returning false when book has no id or its id is already taken.
func (s *Store) AddBook(ctx context.Context, book models.Book) bool {
	if book.ID.IsZero() {
		s.logger.Warn("Refusing to add book without id", zap.String("title", book.Title))
		return false
	}
	return s.mutate(ctx, "add", book.ID, func(current []models.Book) ([]models.Book, bool) {
		if indexOf(current, book.ID) >= 0 {
			s.logger.Warn("Refusing to add book with duplicate id", zap.String("book_id", book.ID.String()))
			return nil, false
		}
		next := make([]models.Book, len(current), len(current)+1)
		copy(next, current)
		return append(next, book.Clone()), true
	})
}

// RemoveBook drops every record with id. It returns false when none matched.
func (s *Store) RemoveBook(ctx context.Context, id models.ID) bool {
	return s.mutate(ctx, "remove", id, func(current []models.Book) ([]models.Book, bool) {
		next := make([]models.Book, 0, len(current))
		for _, b := range current {
			if b.ID != id {
				next = append(next, b)
			}
		}
		return next, len(next) != len(current)
	})
}

// UpdateBook merges patch over the record with id.
func (s *Store) UpdateBook(ctx context.Context, id models.ID, patch models.Patch) bool {
	return s.update(ctx, "update", id, patch.Apply)
}

// UpdateBookStatus sets the reading state of the record with id.
func (s *Store) UpdateBookStatus(ctx context.Context, id models.ID, state models.ReadingState) bool {
	return s.UpdateBook(ctx, id, models.Patch{State: &state})
}

// MarkAsReading moves the record to Reading and stamps the comment with
// today's date in Chilean format.
func (s *Store) MarkAsReading(ctx context.Context, id models.ID) bool {
	state := models.Reading
	comment := StartedComment(s.now().In(s.loc))
	return s.UpdateBook(ctx, id, models.Patch{State: &state, Comment: &comment})
}

// ToggleReading flips between Reading and Unread. Any non-reading state
// becomes Reading, and toggling off always lands on Unread: a Finished or
// custom status that was replaced is not restored.
func (s *Store) ToggleReading(ctx context.Context, id models.ID) bool {
	return s.update(ctx, "toggle_reading", id, func(b models.Book) models.Book {
		if b.State.IsReading() {
			b.State = models.Unread
		} else {
			b.State = models.Reading
		}
		return b
	})
}

// ToggleFavorite flips the favorite flag.
func (s *Store) ToggleFavorite(ctx context.Context, id models.ID) bool {
	return s.update(ctx, "toggle_favorite", id, func(b models.Book) models.Book {
		b.Favorite = !b.Favorite
		return b
	})
}

// Reload replaces the collection with what storage currently holds and
// notifies subscribers. Another process's write wins over local state.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	s.books = s.load(ctx)
	snapshot := cloneAll(s.books)
	s.publish(snapshot, nil)
	s.mu.Unlock()

	s.logger.Info("Book collection reloaded", zap.Int("books", len(snapshot)))
	s.deliver()
}

func (s *Store) update(ctx context.Context, op string, id models.ID, fn func(models.Book) models.Book) bool {
	return s.mutate(ctx, op, id, func(current []models.Book) ([]models.Book, bool) {
		i := indexOf(current, id)
		if i < 0 {
			return nil, false
		}
		next := make([]models.Book, len(current))
		copy(next, current)
		next[i] = fn(current[i].Clone())
		return next, true
	})
}

// mutate runs fn against the current collection and, when it reports a
// change, persists and publishes the result. fn must not modify current.
func (s *Store) mutate(ctx context.Context, op string, id models.ID, fn func([]models.Book) ([]models.Book, bool)) bool {
	s.mu.Lock()
	next, changed := fn(s.books)
	if !changed {
		s.mu.Unlock()
		s.logger.Debug("Book mutation matched nothing",
			zap.String("op", op),
			zap.String("book_id", id.String()),
		)
		return false
	}

	s.persist(ctx, next)
	s.books = next
	snapshot := cloneAll(next)
	s.publish(snapshot, nil)
	s.mu.Unlock()

	s.logger.Debug("Book mutation applied",
		zap.String("op", op),
		zap.String("book_id", id.String()),
		zap.Int("books", len(snapshot)),
	)
	s.deliver()
	return true
}

func (s *Store) persist(ctx context.Context, books []models.Book) {
	raw, err := codec.Encode(books)
	if err != nil {
		s.logger.Error("Failed to encode book collection", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		s.logger.Error("Failed to persist book collection",
			zap.String("key", s.key),
			zap.Error(err),
		)
	}
}

func indexOf(books []models.Book, id models.ID) int {
	for i, b := range books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(books []models.Book) []models.Book {
	out := make([]models.Book, len(books))
	for i, b := range books {
		out[i] = b.Clone()
	}
	return out
}
