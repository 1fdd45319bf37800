package vtcore

type logger struct {
	fn func(string, ...interface{})
}

var tlog logger

// SetLogger installs a diagnostic log function. The core never fails hard on
// protocol errors; truncated sequences and unknown dispatches are reported
// here instead. The default logger discards everything.
func SetLogger(l func(string, ...interface{})) {
	tlog.fn = l
}

func (l *logger) Printf(s string, args ...interface{}) {
	if l.fn == nil {
		return
	}
	l.fn(s, args...)
}
