package logging

// Nop discards all messages.
type Nop struct{}

// NewNop creates a new no-op logger.
func NewNop() *Nop {
	return &Nop{}
}

func (l *Nop) Debug(msg string, args ...interface{}) {}
func (l *Nop) Info(msg string, args ...interface{})  {}
func (l *Nop) Warn(msg string, args ...interface{})  {}
func (l *Nop) Error(msg string, args ...interface{}) {}

// WithComponent returns the same no-op logger.
func (l *Nop) WithComponent(component string) Logger {
	return l
}
