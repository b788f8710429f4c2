// Package ipc implements the JSON-lines control socket of a running presto.
package ipc

// Control commands understood by the engine.
const (
	CommandStatus  = "status"
	CommandToggle  = "toggle"
	CommandEnable  = "enable"
	CommandDisable = "disable"
	CommandReload  = "reload"
	CommandStop    = "stop"
)

// Commands lists every control command in help order.
var Commands = []string{CommandStatus, CommandToggle, CommandEnable, CommandDisable, CommandReload, CommandStop}

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool              `json:"ok"`
	State   string            `json:"state,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
}
