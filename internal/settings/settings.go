package settings

import "fmt"

const (
	CmdName = "xstack"

	DefaultListenAddr = "localhost:8123"
)

var (
	PidFile             = fmt.Sprintf("/tmp/%s.pid", CmdName)
	LogFile             = fmt.Sprintf("/tmp/%s.log", CmdName)
	HealthCheckSockPath = fmt.Sprintf("/tmp/%s.sock", CmdName)
)
