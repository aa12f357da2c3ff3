package app

import "github.com/dkeye/Meet/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a recipient whose send buffer is full.
type Policy interface {
	OnBackPressure(h domain.Handle, event string) BackpressureAction
}

// SimplePolicy kicks any connection that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.Handle, string) BackpressureAction {
	return KickMember
}

// LenientPolicy drops the frame and keeps the connection.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(domain.Handle, string) BackpressureAction {
	return DropFrame
}
