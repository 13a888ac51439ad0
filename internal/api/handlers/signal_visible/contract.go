package signal_visible

type ConnectivitySwitch interface {
	SignalVisible()
}
