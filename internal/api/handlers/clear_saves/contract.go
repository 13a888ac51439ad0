package clear_saves

type SaveManager interface {
	ClearPendingSaves() int
}

type Logger interface {
	Warn(format string, v ...interface{})
}
