package app

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/rs/zerolog/log"
)

var ErrNameWaiting = errors.New("display name already waiting")

type waitingEntry struct {
	handle domain.Handle
	name   string
	target string
	seq    uint64
}

// Match pairs two room-less peers. Sender starts the negotiation.
type Match struct {
	Sender   domain.MemberView
	Receiver domain.MemberView
}

func (m Match) Found() bool { return m.Sender.Handle != "" }

// WaitingPool holds peers waiting for a direct connection. Waiters without a
// target and waiters for a specific name are indexed separately; both indexes
// stay in arrival order so the oldest eligible waiter always wins.
type WaitingPool struct {
	mu       sync.Mutex
	seq      uint64
	byName   map[string]*waitingEntry
	byHandle map[domain.Handle]*waitingEntry
	wildcard []*waitingEntry
	specific map[string][]*waitingEntry
}

func NewWaitingPool() *WaitingPool {
	return &WaitingPool{
		byName:   make(map[string]*waitingEntry),
		byHandle: make(map[domain.Handle]*waitingEntry),
		specific: make(map[string][]*waitingEntry),
	}
}

// Request either matches h with a waiting peer or enqueues it. A Match that
// is not Found with a nil error means h is now waiting.
func (p *WaitingPool) Request(h domain.Handle, displayName, desiredTarget string) (Match, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.report()

	// A repeated request replaces the previous one but keeps its place.
	var seq uint64
	prev, hadPrev := p.byHandle[h]
	if hadPrev {
		seq = prev.seq
		p.unlink(prev)
	}

	requester := domain.MemberView{Handle: h, DisplayName: displayName}
	if desiredTarget != "" {
		if e, ok := p.byName[desiredTarget]; ok && e.handle != h {
			p.unlink(e)
			return Match{Sender: requester, Receiver: e.view()}, nil
		}
	} else if e := p.oldestFor(displayName); e != nil {
		p.unlink(e)
		return Match{Sender: requester, Receiver: e.view()}, nil
	}

	// Names are unique among waiters, so only an insert can clash.
	if _, ok := p.byName[displayName]; ok {
		if hadPrev {
			p.link(prev)
		}
		return Match{}, ErrNameWaiting
	}
	if seq == 0 {
		p.seq++
		seq = p.seq
	}
	p.link(&waitingEntry{handle: h, name: displayName, target: desiredTarget, seq: seq})
	log.Debug().Str("module", "app.waiting").Str("sid", string(h)).Str("username", displayName).Str("target", desiredTarget).Msg("waiting for peer")
	return Match{}, nil
}

// Remove forgets h. Used on disconnect; nobody is notified.
func (p *WaitingPool) Remove(h domain.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byHandle[h]
	if !ok {
		return false
	}
	p.unlink(e)
	p.report()
	return true
}

func (p *WaitingPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHandle)
}

// oldestFor returns the earliest waiter that accepts name: either one with no
// target or one that asked for name.
func (p *WaitingPool) oldestFor(name string) *waitingEntry {
	var best *waitingEntry
	if len(p.wildcard) > 0 {
		best = p.wildcard[0]
	}
	if q := p.specific[name]; len(q) > 0 && (best == nil || q[0].seq < best.seq) {
		best = q[0]
	}
	return best
}

func (p *WaitingPool) link(e *waitingEntry) {
	p.byName[e.name] = e
	p.byHandle[e.handle] = e
	if e.target == "" {
		p.wildcard = insertBySeq(p.wildcard, e)
		return
	}
	p.specific[e.target] = insertBySeq(p.specific[e.target], e)
}

func (p *WaitingPool) unlink(e *waitingEntry) {
	delete(p.byName, e.name)
	delete(p.byHandle, e.handle)
	if e.target == "" {
		p.wildcard = removeEntry(p.wildcard, e)
		return
	}
	q := removeEntry(p.specific[e.target], e)
	if len(q) == 0 {
		delete(p.specific, e.target)
		return
	}
	p.specific[e.target] = q
}

func (p *WaitingPool) report() {
	metrics.WaitingPeers.Set(float64(len(p.byHandle)))
}

func (e *waitingEntry) view() domain.MemberView {
	return domain.MemberView{Handle: e.handle, DisplayName: e.name}
}

func insertBySeq(q []*waitingEntry, e *waitingEntry) []*waitingEntry {
	i, _ := slices.BinarySearchFunc(q, e.seq, func(x *waitingEntry, seq uint64) int {
		return cmp.Compare(x.seq, seq)
	})
	return slices.Insert(q, i, e)
}

func removeEntry(q []*waitingEntry, e *waitingEntry) []*waitingEntry {
	return slices.DeleteFunc(q, func(x *waitingEntry) bool { return x == e })
}
