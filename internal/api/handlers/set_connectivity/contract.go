package set_connectivity

type ConnectivitySwitch interface {
	SetOnline(online bool) bool
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}
