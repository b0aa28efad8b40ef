package ports

type SessionStore interface {
	Exists() bool
	Clear() error
}
