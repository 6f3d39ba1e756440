package core

// Logger is any leveled logger.
// expected args: error, map[string]interface{} or an Identity for the person the log line is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity is the signed-in console user, as read from the backend session.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string // admin | teacher
}

func (id Identity) IsAdmin() bool   { return id.Role == RoleAdmin }
func (id Identity) IsTeacher() bool { return id.Role == RoleTeacher }

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// AppContext is the immutable per-request context handed to pages and controllers.
type AppContext struct {
	User    Identity
	AppName string
	Build   string
}

type nopLogger struct{}

// NopLogger discards everything; handy for tests.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
