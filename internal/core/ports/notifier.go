package ports

// Notification is a user-facing report of a recoverable error.
type Notification struct {
	Title   string
	Message string
}

// Notifier surfaces recoverable per-file errors to the user.
//
//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(n Notification)
}
