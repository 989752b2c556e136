// Package badger implements storage.SessionStore on BadgerDB.
package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

// SessionStore implements storage.SessionStore for BadgerDB. Messages are
// keyed per issue with a BigEndian timestamp component so iteration order is
// chronological.
type SessionStore struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore opens a session store at the given path.
func NewSessionStore(path string) (storage.SessionStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newSessionStore(backend)
}

// NewMemorySessionStore opens an in-memory session store for tests.
func NewMemorySessionStore() (storage.SessionStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newSessionStore(backend)
}

func newSessionStore(backend *Backend) (*SessionStore, error) {
	idSeq, err := backend.GetSequence(sessionMessageIDSeq)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &SessionStore{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence and the database.
func (s *SessionStore) Close() error {
	if err := s.idSeq.Release(); err != nil {
		s.backend.Close()
		return err
	}
	return s.backend.Close()
}

// AppendMessages appends messages to their issues' histories. Zero IDs are
// assigned from the sequence and zero timestamps set to now.
func (s *SessionStore) AppendMessages(ctx context.Context, messages ...*core.ChatMessage) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, message := range messages {
			if message.Id == 0 {
				nextID, err := s.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = s.idSeq.Next()
					if err != nil {
						return err
					}
				}
				message.Id = core.ID(nextID)
			}
			if message.Timestamp.IsZero() {
				message.Timestamp = time.Now().UTC()
			}

			key := makeSessionMessageKey(message.IssueID, message.Timestamp, message.Id)
			if err := tx.Set(key, storage.MarshalChatMessage(message)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// History returns up to limit messages for an issue, oldest first. When the
// history is longer than limit, the most recent messages are returned.
func (s *SessionStore) History(ctx context.Context, issueID string, limit int) ([]*core.ChatMessage, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var messages []*core.ChatMessage
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSessionPrefix(issueID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var message *core.ChatMessage
			err := iter.Item().Value(func(val []byte) error {
				var err error
				message, err = storage.UnmarshalChatMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// ClearHistory removes all messages for an issue.
func (s *SessionStore) ClearHistory(ctx context.Context, issueID string) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSessionPrefix(issueID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
