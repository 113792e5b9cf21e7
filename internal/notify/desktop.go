package notify

import "github.com/gen2brain/beeep"

// Permission mirrors the platform notification permission states.
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// Notifier posts OS-level notification popups. Permission is requested
// lazily on first use; a denied or failing notifier never blocks in-app
// delivery.
type Notifier interface {
	RequestPermission() Permission
	Notify(title, body string) error
}

// DesktopNotifier shows popups through the operating system's notification
// facility. Desktop environments do not gate this behind a prompt, so
// permission is implicitly granted.
type DesktopNotifier struct{}

func NewDesktopNotifier() *DesktopNotifier { return &DesktopNotifier{} }

func (n *DesktopNotifier) RequestPermission() Permission { return PermissionGranted }

func (n *DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}
