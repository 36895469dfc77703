package yamux

import "github.com/inconshreveable/log15"

// sessionLogger returns a child logger tagged with enough context to
// disambiguate log lines when a process runs many sessions at once.
func sessionLogger(base log15.Logger, client bool) log15.Logger {
	role := "server"
	if client {
		role = "client"
	}
	return base.New("role", role)
}
