// Package ipc is the line-delimited JSON protocol between the owner process
// and sibling askit invocations over a unix socket.
package ipc

// Commands understood by the owner.
const (
	CommandStatus = "status"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandCancel = "cancel"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK          bool   `json:"ok"`
	State       string `json:"state,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	UtteranceID string `json:"utterance_id,omitempty"`
	Language    string `json:"language,omitempty"`
}
