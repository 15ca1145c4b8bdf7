package link

import "errors"

var (
	// ErrLinkClosed is returned when sending on or starting a closed link.
	ErrLinkClosed = errors.New("link: closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("link: already started")
	// ErrNilNotifier is returned when a link is created without a Notifier.
	ErrNilNotifier = errors.New("link: notifier is nil")
)
