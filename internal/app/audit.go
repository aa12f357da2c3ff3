package app

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type auditOp string

const (
	opStartMeeting auditOp = "start_meeting"
	opEndMeeting   auditOp = "end_meeting"
	opJoin         auditOp = "participant_join"
	opLeave        auditOp = "participant_leave"
	opChat         auditOp = "chat"
	opForget       auditOp = "forget"
	opBarrier      auditOp = "barrier"
)

type auditCmd struct {
	op      auditOp
	room    domain.RoomID
	conn    domain.Connection
	by      *domain.UserID
	message string
	at      time.Time
	done    chan struct{}
}

type meetingRef struct {
	id        domain.MeetingID
	startedAt time.Time
}

type participantKey struct {
	room   domain.RoomID
	handle domain.Handle
}

type openParticipant struct {
	id       domain.ParticipantID
	joinedAt time.Time
}

// shard state is owned by its worker goroutine and never shared.
type auditShard struct {
	queue        chan auditCmd
	meetings     map[domain.RoomID]meetingRef
	participants map[participantKey]openParticipant
}

type AuditConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Auditor is the Reconciler backed by a MeetingStore. Commands for one room
// always land on the same shard, so they are applied in the order the room
// decided them. The real-time path only ever does a non-blocking enqueue.
type Auditor struct {
	store   core.MeetingStore
	shards  []*auditShard
	timeout time.Duration

	onMeeting func(domain.RoomID, domain.MeetingID)
}

func NewAuditor(store core.MeetingStore, cfg AuditConfig) *Auditor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	a := &Auditor{store: store, timeout: cfg.Timeout}
	for range cfg.Workers {
		a.shards = append(a.shards, &auditShard{
			queue:        make(chan auditCmd, cfg.QueueSize),
			meetings:     make(map[domain.RoomID]meetingRef),
			participants: make(map[participantKey]openParticipant),
		})
	}
	return a
}

// OnMeetingKnown registers a callback for when a room's meeting id is
// resolved. Must be set before Run.
func (a *Auditor) OnMeetingKnown(fn func(domain.RoomID, domain.MeetingID)) {
	a.onMeeting = fn
}

// Run applies queued commands until ctx is done, then drains what is left.
func (a *Auditor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range a.shards {
		g.Go(func() error {
			a.work(ctx, i, s)
			return nil
		})
	}
	return g.Wait()
}

func (a *Auditor) work(ctx context.Context, idx int, s *auditShard) {
	log.Debug().Str("module", "app.audit").Int("shard", idx).Msg("audit worker started")
	for {
		select {
		case cmd := <-s.queue:
			a.apply(s, cmd)
		case <-ctx.Done():
			for {
				select {
				case cmd := <-s.queue:
					a.apply(s, cmd)
				default:
					log.Debug().Str("module", "app.audit").Int("shard", idx).Msg("audit worker stopped")
					return
				}
			}
		}
	}
}

// Flush blocks until every command queued before the call has been applied.
func (a *Auditor) Flush(ctx context.Context) error {
	dones := make([]chan struct{}, 0, len(a.shards))
	for _, s := range a.shards {
		done := make(chan struct{})
		select {
		case s.queue <- auditCmd{op: opBarrier, done: done}:
		case <-ctx.Done():
			return ctx.Err()
		}
		dones = append(dones, done)
	}
	for _, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *Auditor) shardFor(room domain.RoomID) *auditShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(room))
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

func (a *Auditor) enqueue(cmd auditCmd) {
	select {
	case a.shardFor(cmd.room).queue <- cmd:
	default:
		metrics.AuditDropped.WithLabelValues(string(cmd.op)).Inc()
		log.Warn().Str("module", "app.audit").Str("room", string(cmd.room)).Str("op", string(cmd.op)).Msg("audit queue full, command dropped")
	}
}

func (a *Auditor) MeetingStarted(room domain.RoomID, by *domain.UserID, at time.Time) {
	a.enqueue(auditCmd{op: opStartMeeting, room: room, by: by, at: at})
}

func (a *Auditor) MeetingEnded(room domain.RoomID, at time.Time) {
	a.enqueue(auditCmd{op: opEndMeeting, room: room, at: at})
}

func (a *Auditor) ParticipantJoined(room domain.RoomID, conn domain.Connection, at time.Time) {
	a.enqueue(auditCmd{op: opJoin, room: room, conn: conn, at: at})
}

func (a *Auditor) ParticipantLeft(room domain.RoomID, conn domain.Connection, at time.Time) {
	a.enqueue(auditCmd{op: opLeave, room: room, conn: conn, at: at})
}

func (a *Auditor) ChatPosted(room domain.RoomID, conn domain.Connection, message string, at time.Time) {
	a.enqueue(auditCmd{op: opChat, room: room, conn: conn, message: message, at: at})
}

func (a *Auditor) Forget(room domain.RoomID) {
	a.enqueue(auditCmd{op: opForget, room: room})
}

func (a *Auditor) apply(s *auditShard, cmd auditCmd) {
	if cmd.op == opBarrier {
		close(cmd.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var err error
	switch cmd.op {
	case opStartMeeting:
		err = a.startMeeting(ctx, s, cmd)
	case opEndMeeting:
		err = a.endMeeting(ctx, s, cmd)
	case opJoin:
		err = a.join(ctx, s, cmd)
	case opLeave:
		err = a.leave(ctx, s, cmd)
	case opChat:
		err = a.chat(ctx, s, cmd)
	case opForget:
		delete(s.meetings, cmd.room)
		for k := range s.participants {
			if k.room == cmd.room {
				delete(s.participants, k)
			}
		}
	}
	if err != nil {
		metrics.AuditFailures.WithLabelValues(string(cmd.op)).Inc()
		log.Error().Err(err).
			Str("module", "app.audit").
			Str("room", string(cmd.room)).
			Str("meeting", string(s.meetings[cmd.room].id)).
			Str("sid", string(cmd.conn.Handle)).
			Str("op", string(cmd.op)).
			Msg("audit write failed")
	}
}

var errNoMeeting = errors.New("no meeting for room")

// startMeeting resumes the room's lineage when one is known in memory or in
// the store, and creates a new record otherwise.
func (a *Auditor) startMeeting(ctx context.Context, s *auditShard, cmd auditCmd) error {
	if ref, ok := s.meetings[cmd.room]; ok {
		return a.store.ReactivateMeeting(ctx, ref.id)
	}

	m, err := a.store.FindMeetingByRoom(ctx, cmd.room)
	switch {
	case err == nil:
		if err := a.store.ReactivateMeeting(ctx, m.ID); err != nil {
			return err
		}
		a.remember(s, cmd.room, meetingRef{id: m.ID, startedAt: m.StartedAt})
		return nil
	case !errors.Is(err, core.ErrNotFound):
		return err
	}

	id, err := a.store.CreateMeeting(ctx, cmd.room, cmd.by, cmd.at)
	if errors.Is(err, core.ErrMeetingExists) {
		// Lost a race with another writer of the same room.
		if m, err = a.store.FindMeetingByRoom(ctx, cmd.room); err != nil {
			return err
		}
		if err := a.store.ReactivateMeeting(ctx, m.ID); err != nil {
			return err
		}
		a.remember(s, cmd.room, meetingRef{id: m.ID, startedAt: m.StartedAt})
		return nil
	}
	if err != nil {
		return err
	}
	a.remember(s, cmd.room, meetingRef{id: id, startedAt: cmd.at})
	return nil
}

func (a *Auditor) remember(s *auditShard, room domain.RoomID, ref meetingRef) {
	s.meetings[room] = ref
	log.Info().Str("module", "app.audit").Str("room", string(room)).Str("meeting", string(ref.id)).Msg("meeting active")
	if a.onMeeting != nil {
		a.onMeeting(room, ref.id)
	}
}

func (a *Auditor) endMeeting(ctx context.Context, s *auditShard, cmd auditCmd) error {
	ref, ok := s.meetings[cmd.room]
	if !ok {
		return errNoMeeting
	}
	return a.store.EndMeeting(ctx, ref.id, cmd.at, domain.Seconds(ref.startedAt, cmd.at))
}

func (a *Auditor) join(ctx context.Context, s *auditShard, cmd auditCmd) error {
	ref, ok := s.meetings[cmd.room]
	if !ok {
		return errNoMeeting
	}
	pid, err := a.store.RecordParticipantJoin(ctx, ref.id, cmd.conn.UserID, cmd.conn.DisplayName, cmd.at)
	if err != nil {
		return err
	}
	s.participants[participantKey{room: cmd.room, handle: cmd.conn.Handle}] = openParticipant{id: pid, joinedAt: cmd.at}
	return a.timeline(ctx, ref.id, domain.EventUserJoin, cmd)
}

func (a *Auditor) leave(ctx context.Context, s *auditShard, cmd auditCmd) error {
	ref, ok := s.meetings[cmd.room]
	if !ok {
		return errNoMeeting
	}
	key := participantKey{room: cmd.room, handle: cmd.conn.Handle}
	open, ok := s.participants[key]
	delete(s.participants, key)
	if !ok {
		p, err := a.store.FindOpenParticipant(ctx, ref.id, cmd.conn.DisplayName)
		if err != nil {
			return err
		}
		open = openParticipant{id: p.ID, joinedAt: p.JoinedAt}
	}
	if err := a.store.RecordParticipantLeave(ctx, open.id, cmd.at, domain.Seconds(open.joinedAt, cmd.at)); err != nil {
		return err
	}
	return a.timeline(ctx, ref.id, domain.EventUserLeave, cmd)
}

func (a *Auditor) chat(ctx context.Context, s *auditShard, cmd auditCmd) error {
	ref, ok := s.meetings[cmd.room]
	if !ok {
		return errNoMeeting
	}
	return a.timeline(ctx, ref.id, domain.EventChat, cmd)
}

func (a *Auditor) timeline(ctx context.Context, meetingID domain.MeetingID, typ domain.TimelineEventType, cmd auditCmd) error {
	return a.store.AppendTimelineEvent(ctx, domain.TimelineEvent{
		ID:          uuid.NewString(),
		MeetingID:   meetingID,
		Type:        typ,
		UserID:      cmd.conn.UserID,
		DisplayName: cmd.conn.DisplayName,
		Message:     cmd.message,
		At:          cmd.at,
	})
}
