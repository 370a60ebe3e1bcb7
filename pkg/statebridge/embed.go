package statebridge

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/vango-dev/staticrouter/pkg/document"
)

const (
	// BootAttr marks the boot payload script.
	BootAttr = "data-static-state"

	// BootKey is the value of BootAttr and the state file's page state field.
	BootKey = "page.state"

	// StateFileName is the state file written next to each prerendered page.
	StateFileName = "page.state.json"

	// BuildQueryParam carries the build id on state file requests.
	BuildQueryParam = "s"
)

// StateFile is the body of page.state.json.
type StateFile struct {
	PageState  any      `json:"page.state"`
	Components []string `json:"components"`
}

// Embed writes the snapshot of state into doc as the boot payload. An
// existing payload is overwritten.
func Embed(doc *document.Document, state any) error {
	data, err := json.Marshal(Snapshot(state))
	if err != nil {
		return fmt.Errorf("encode boot payload: %w", err)
	}
	doc.UpsertScript(BootAttr, BootKey, "application/json", string(data))
	return nil
}

// Extract removes the boot payload from doc and decodes it. ok is false
// when the document carries no payload.
func Extract(doc *document.Document) (state any, ok bool, err error) {
	text, ok := doc.TakeScript(BootAttr, BootKey)
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(text), &state); err != nil {
		return nil, true, fmt.Errorf("decode boot payload: %w", err)
	}
	return state, true, nil
}

// StatePath returns the same-origin path of the state file for u:
// the pathname ensured to end in "/", then page.state.json?s=<buildID>.
func StatePath(u *url.URL, buildID string) string {
	path := u.EscapedPath()
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + StateFileName + "?" + BuildQueryParam + "=" + url.QueryEscape(buildID)
}
