// Package livereload notifies connected browsers about rebuilds over a
// websocket and injects the client script into served HTML.
package livereload

// Message types sent to browsers.
const (
	TypeHello    = "hello"
	TypeBuilding = "building"
	TypeReload   = "reload"
	TypeError    = "error"
)

// Message is the JSON payload written to each websocket client.
type Message struct {
	Type    string   `json:"type"`
	BuildID string   `json:"build_id,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Building announces that a rebuild started.
func Building() Message {
	return Message{Type: TypeBuilding}
}

// Reload asks clients to reload after a successful build.
func Reload(buildID string) Message {
	return Message{Type: TypeReload, BuildID: buildID}
}

// Failed reports build errors to clients without reloading.
func Failed(buildID string, errors []string) Message {
	return Message{Type: TypeError, BuildID: buildID, Errors: errors}
}
