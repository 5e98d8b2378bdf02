// Package event mediates change notifications between the repository
// watcher and the log syncer.
package event

// Notification conveys a "repository changed" signal
type Notification struct {
	RepoPath string
}

// Notifier mediates notifications between watchers and the syncer
type Notifier interface {
	Send(notif *Notification)
	ReadChan() <-chan Notification
}

// Coalescing implements Notifier. Pending notifications coalesce: a signal
// sent while one is already waiting is dropped, since the waiting signal
// will observe the repository's latest state anyway.
type Coalescing struct {
	c chan Notification
}

// New creates a new event.Notifier
func New() *Coalescing {
	return &Coalescing{
		c: make(chan Notification, 1),
	}
}

// Send sends a notification, without blocking
func (n *Coalescing) Send(notif *Notification) {
	select {
	case n.c <- *notif:
	default:
	}
}

// ReadChan returns the channel notifications are delivered on
func (n *Coalescing) ReadChan() <-chan Notification {
	return n.c
}
