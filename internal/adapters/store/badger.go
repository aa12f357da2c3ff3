package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	meeting:{id}                          -> Meeting
//	meeting-room:{roomID}                 -> meeting id
//	participant:{mid}:{joinedNanos}:{pid} -> Participant
//	participant-id:{pid}                  -> participant key
//	event:{mid}:{atNanos}:{id}            -> TimelineEvent
const (
	prefixMeeting       = "meeting:"
	prefixMeetingRoom   = "meeting-room:"
	prefixParticipant   = "participant:"
	prefixParticipantID = "participant-id:"
	prefixEvent         = "event:"
)

// MeetingStore persists the meeting audit trail in BadgerDB. Values are
// msgpack encoded; every write is a single transaction.
type MeetingStore struct {
	db *badger.DB
}

var _ core.MeetingStore = (*MeetingStore)(nil)

func NewMeetingStore(db *badger.DB) *MeetingStore {
	return &MeetingStore{db: db}
}

// Open opens the database at path, or an in-memory one when path is empty.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

func meetingKey(id domain.MeetingID) []byte { return []byte(prefixMeeting + string(id)) }
func roomKey(room domain.RoomID) []byte { return []byte(prefixMeetingRoom + string(room)) }
func participantIDKey(id domain.ParticipantID) []byte {
	return []byte(prefixParticipantID + string(id))
}

func participantPrefix(mid domain.MeetingID) []byte {
	return []byte(prefixParticipant + string(mid) + ":")
}

func participantKey(p domain.Participant) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixParticipant, p.MeetingID, p.JoinedAt.UnixNano(), p.ID))
}

func eventPrefix(mid domain.MeetingID) []byte {
	return []byte(prefixEvent + string(mid) + ":")
}

func eventKey(e domain.TimelineEvent) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixEvent, e.MeetingID, e.At.UnixNano(), e.ID))
}

func (s *MeetingStore) FindMeetingByRoom(ctx context.Context, roomID domain.RoomID) (domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return domain.Meeting{}, err
	}
	var m domain.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getRaw(txn, roomKey(roomID))
		if err != nil {
			return err
		}
		return getValue(txn, meetingKey(domain.MeetingID(id)), &m)
	})
	return m, err
}

// CreateMeeting starts a new lineage for roomID. It fails with
// core.ErrMeetingExists when the room already has one.
func (s *MeetingStore) CreateMeeting(ctx context.Context, roomID domain.RoomID, createdBy *domain.UserID, startedAt time.Time) (domain.MeetingID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := domain.Meeting{
		ID:        domain.MeetingID(uuid.NewString()),
		RoomID:    roomID,
		CreatedBy: createdBy,
		StartedAt: startedAt.UTC(),
		IsActive:  true,
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err == nil {
			return core.ErrMeetingExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setValue(txn, meetingKey(m.ID), m); err != nil {
			return err
		}
		return txn.Set(roomKey(roomID), []byte(m.ID))
	})
	if errors.Is(err, badger.ErrConflict) {
		return "", core.ErrMeetingExists
	}
	if err != nil {
		return "", err
	}
	log.Info().Str("module", "adapters.store").Str("room", string(roomID)).Str("meeting", string(m.ID)).Msg("created meeting")
	return m.ID, nil
}

// ReactivateMeeting reopens a meeting, keeping its original start.
func (s *MeetingStore) ReactivateMeeting(ctx context.Context, meetingID domain.MeetingID) error {
	return s.updateMeeting(ctx, meetingID, func(m *domain.Meeting) {
		m.IsActive = true
		m.EndedAt = nil
	})
}

func (s *MeetingStore) EndMeeting(ctx context.Context, meetingID domain.MeetingID, endedAt time.Time, durationSeconds int64) error {
	endedAt = endedAt.UTC()
	return s.updateMeeting(ctx, meetingID, func(m *domain.Meeting) {
		m.IsActive = false
		m.EndedAt = &endedAt
		m.DurationSeconds = durationSeconds
	})
}

func (s *MeetingStore) updateMeeting(ctx context.Context, id domain.MeetingID, fn func(*domain.Meeting)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var m domain.Meeting
		if err := getValue(txn, meetingKey(id), &m); err != nil {
			return err
		}
		fn(&m)
		return setValue(txn, meetingKey(id), m)
	})
}

func (s *MeetingStore) RecordParticipantJoin(ctx context.Context, meetingID domain.MeetingID, userID *domain.UserID, displayName string, joinedAt time.Time) (domain.ParticipantID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := domain.Participant{
		ID:          domain.ParticipantID(uuid.NewString()),
		MeetingID:   meetingID,
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    joinedAt.UTC(),
	}
	key := participantKey(p)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(meetingKey(meetingID)); err != nil {
			return notFound(err)
		}
		if err := setValue(txn, key, p); err != nil {
			return err
		}
		return txn.Set(participantIDKey(p.ID), key)
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// FindOpenParticipant returns the most recently joined participant of the
// meeting with displayName that has not left yet.
func (s *MeetingStore) FindOpenParticipant(ctx context.Context, meetingID domain.MeetingID, displayName string) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, err
	}
	var found domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := participantPrefix(meetingID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Participant
			if err := it.Item().Value(func(v []byte) error { return msgpack.Unmarshal(v, &p) }); err != nil {
				return err
			}
			if p.LeftAt == nil && p.DisplayName == displayName {
				found = p
				return nil
			}
		}
		return core.ErrNotFound
	})
	return found, err
}

func (s *MeetingStore) RecordParticipantLeave(ctx context.Context, participantID domain.ParticipantID, leftAt time.Time, durationSeconds int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	leftAt = leftAt.UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		key, err := getRaw(txn, participantIDKey(participantID))
		if err != nil {
			return err
		}
		var p domain.Participant
		if err := getValue(txn, key, &p); err != nil {
			return err
		}
		p.LeftAt = &leftAt
		p.DurationSeconds = durationSeconds
		return setValue(txn, key, p)
	})
}

func (s *MeetingStore) AppendTimelineEvent(ctx context.Context, evt domain.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.At = evt.At.UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		return setValue(txn, eventKey(evt), evt)
	})
}

// Meeting loads one meeting record.
func (s *MeetingStore) Meeting(ctx context.Context, id domain.MeetingID) (domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return domain.Meeting{}, err
	}
	var m domain.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		return getValue(txn, meetingKey(id), &m)
	})
	return m, err
}

// Participants lists a meeting's participants in join order.
func (s *MeetingStore) Participants(ctx context.Context, meetingID domain.MeetingID) ([]domain.Participant, error) {
	return scan[domain.Participant](ctx, s.db, participantPrefix(meetingID))
}

// Timeline lists a meeting's events in time order.
func (s *MeetingStore) Timeline(ctx context.Context, meetingID domain.MeetingID) ([]domain.TimelineEvent, error) {
	return scan[domain.TimelineEvent](ctx, s.db, eventPrefix(meetingID))
}

func scan[T any](ctx context.Context, db *badger.DB, prefix []byte) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v T
			if err := it.Item().Value(func(b []byte) error { return msgpack.Unmarshal(b, &v) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func getRaw(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, notFound(err)
	}
	return item.ValueCopy(nil)
}

func getValue(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return notFound(err)
	}
	return item.Value(func(b []byte) error {
		if err := msgpack.Unmarshal(b, v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}

func setValue(txn *badger.Txn, key []byte, v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, b)
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.ErrNotFound
	}
	return err
}

// badgerLogger routes badger's own logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, args ...any) {
	log.Error().Str("module", "badger").Msg(strings.TrimSpace(fmt.Sprintf(f, args...)))
}

func (badgerLogger) Warningf(f string, args ...any) {
	log.Warn().Str("module", "badger").Msg(strings.TrimSpace(fmt.Sprintf(f, args...)))
}

func (badgerLogger) Infof(f string, args ...any) {
	log.Debug().Str("module", "badger").Msg(strings.TrimSpace(fmt.Sprintf(f, args...)))
}

func (badgerLogger) Debugf(string, ...any) {}
