// Package phrases provides the persisted quick phrase and saved text collections.
package phrases

import (
	"sync"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/phrase"
	"github.com/osa030/falapai/internal/infra/storage"
)

// Storage keys.
const (
	KeyQuickPhrases = "quickPhrases"
	KeySavedTexts   = "savedTexts"
)

// KV is the durable storage the store flushes to.
// Get must return storage.ErrNotFound for keys never written.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Store owns the quick phrase and saved text collections.
// Memory is authoritative; every mutation is flushed to KV.
type Store struct {
	mu sync.RWMutex

	kv           KV
	quickPhrases []string
	savedTexts   []phrase.SavedText
}

// New loads both collections from kv.
// A missing quick phrase list is seeded with seed (phrase.DefaultQuickPhrases when nil).
// Corrupt data loads as an empty collection.
func New(kv KV, seed []string) (*Store, error) {
	if seed == nil {
		seed = phrase.DefaultQuickPhrases
	}

	s := &Store{kv: kv}

	quick, found, err := loadJSON[[]string](kv, KeyQuickPhrases)
	if err != nil {
		return nil, err
	}
	if found {
		s.quickPhrases = quick
	} else {
		s.quickPhrases = append([]string(nil), seed...)
	}
	if s.quickPhrases == nil {
		s.quickPhrases = make([]string, 0)
	}

	saved, _, err := loadJSON[[]phrase.SavedText](kv, KeySavedTexts)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = make([]phrase.SavedText, 0)
	}
	s.savedTexts = saved

	if s.assignMissingIDs() {
		if err := s.persistSavedTextsLocked(); err != nil {
			zlog.Warn().Msgf("phrases: failed to persist assigned saved text ids: %v", err)
		}
	}

	zlog.Debug().Msgf("phrases: loaded quick_phrases=%d saved_texts=%d", len(s.quickPhrases), len(s.savedTexts))
	return s, nil
}

// loadJSON reads and decodes key. found is false when the key is absent.
// Undecodable data is logged and reported as found with a zero value.
func loadJSON[T any](kv KV, key string) (T, bool, error) {
	var zero T

	data, err := kv.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, errors.Wrapf(err, "failed to load %s", key)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		zlog.Warn().Msgf("phrases: discarding malformed %s: %v", key, err)
		return zero, true, nil
	}
	return v, true, nil
}

func (s *Store) assignMissingIDs() bool {
	assigned := false
	for i := range s.savedTexts {
		if s.savedTexts[i].ID == "" {
			s.savedTexts[i].ID = uuid.New().String()
			assigned = true
		}
	}
	return assigned
}

// QuickPhrases returns a copy of the quick phrases in display order.
func (s *Store) QuickPhrases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.quickPhrases))
	copy(result, s.quickPhrases)
	return result
}

// SavedTexts returns a copy of the saved texts in display order.
func (s *Store) SavedTexts() []phrase.SavedText {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]phrase.SavedText, len(s.savedTexts))
	copy(result, s.savedTexts)
	return result
}

// AddQuickPhrase appends the trimmed text. Empty text is ignored.
func (s *Store) AddQuickPhrase(text string) error {
	text, ok := phrase.NormalizeQuickPhrase(text)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quickPhrases = append(s.quickPhrases, text)
	return s.persistQuickPhrasesLocked()
}

// EditQuickPhrase replaces the first phrase equal to oldValue with the trimmed newValue.
// Empty newValue or an unknown oldValue is ignored.
func (s *Store) EditQuickPhrase(oldValue, newValue string) error {
	newValue, ok := phrase.NormalizeQuickPhrase(newValue)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.quickPhrases {
		if p == oldValue {
			s.quickPhrases[i] = newValue
			return s.persistQuickPhrasesLocked()
		}
	}
	return nil
}

// DeleteQuickPhrase removes every phrase equal to value.
func (s *Store) DeleteQuickPhrase(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]string, 0, len(s.quickPhrases))
	for _, p := range s.quickPhrases {
		if p != value {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.quickPhrases) {
		return nil
	}
	s.quickPhrases = kept
	return s.persistQuickPhrasesLocked()
}

// ReorderQuickPhrases moves the phrase at from to index to, shifting the others.
// Out-of-range indices are ignored.
func (s *Store) ReorderQuickPhrases(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !move(s.quickPhrases, from, to) {
		return nil
	}
	return s.persistQuickPhrasesLocked()
}

// AddSavedText appends a saved text. Records missing a title or content are ignored.
func (s *Store) AddSavedText(title, content string) error {
	st, ok := phrase.NewSavedText(title, content)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.savedTexts = append(s.savedTexts, st)
	return s.persistSavedTextsLocked()
}

// EditSavedText replaces the first saved text matching oldRecord (by title and content).
// The replaced entry keeps its ID and position.
func (s *Store) EditSavedText(oldRecord, newRecord phrase.SavedText) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.savedTexts {
		if s.savedTexts[i].Matches(oldRecord) {
			return s.replaceSavedTextLocked(i, newRecord)
		}
	}
	return nil
}

// EditSavedTextByID replaces the saved text with the given ID.
func (s *Store) EditSavedTextByID(id string, newRecord phrase.SavedText) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.savedTexts {
		if s.savedTexts[i].ID == id {
			return s.replaceSavedTextLocked(i, newRecord)
		}
	}
	return nil
}

func (s *Store) replaceSavedTextLocked(i int, newRecord phrase.SavedText) error {
	st, ok := phrase.NewSavedText(newRecord.Title, newRecord.Content)
	if !ok {
		return nil
	}
	st.ID = s.savedTexts[i].ID
	s.savedTexts[i] = st
	return s.persistSavedTextsLocked()
}

// DeleteSavedText removes every saved text matching record (by title and content).
func (s *Store) DeleteSavedText(record phrase.SavedText) error {
	return s.deleteSavedTexts(record.Matches)
}

// DeleteSavedTextByID removes the saved text with the given ID.
func (s *Store) DeleteSavedTextByID(id string) error {
	return s.deleteSavedTexts(func(st phrase.SavedText) bool { return st.ID == id })
}

func (s *Store) deleteSavedTexts(match func(phrase.SavedText) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]phrase.SavedText, 0, len(s.savedTexts))
	for _, st := range s.savedTexts {
		if !match(st) {
			kept = append(kept, st)
		}
	}
	if len(kept) == len(s.savedTexts) {
		return nil
	}
	s.savedTexts = kept
	return s.persistSavedTextsLocked()
}

// ReorderSavedTexts moves the saved text at from to index to.
func (s *Store) ReorderSavedTexts(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !move(s.savedTexts, from, to) {
		return nil
	}
	return s.persistSavedTextsLocked()
}

// move relocates items[from] to items[to] in place.
func move[T any](items []T, from, to int) bool {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) || from == to {
		return false
	}
	item := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = item
	return true
}

func (s *Store) persistQuickPhrasesLocked() error {
	return s.persist(KeyQuickPhrases, s.quickPhrases)
}

func (s *Store) persistSavedTextsLocked() error {
	return s.persist(KeySavedTexts, s.savedTexts)
}

func (s *Store) persist(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}
	if err := s.kv.Set(key, data); err != nil {
		return errors.Wrapf(err, "failed to persist %s", key)
	}
	return nil
}
