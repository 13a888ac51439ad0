package sign_out

type Session interface {
	SignOut()
}

type Logger interface {
	Info(format string, v ...interface{})
}
