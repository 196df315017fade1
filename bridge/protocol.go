package bridge

import "strings"

// Frame format on guest stderr: \x00HOSTASYNC:{json}\x00
const (
	framePrefix = "\x00HOSTASYNC:"
	frameSuffix = "\x00"
)

type callRequest struct {
	ID   string `json:"id,omitempty"`
	Fn   string `json:"fn"`
	Args []any  `json:"args"`
}

type callResponse struct {
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Type  string `json:"type,omitempty"`
}

type callbackFrame struct {
	Callback string `json:"callback"`
	Args     []any  `json:"args"`
}

// findFrame returns the index of the next frame prefix in content, or -1.
func findFrame(content string) int {
	return strings.Index(content, framePrefix)
}

// extractFrame cuts the frame starting at idx out of content. ok is false
// while the frame is still incomplete; remaining then holds the partial
// frame so the next write can finish it.
func extractFrame(content string, idx int) (payload, remaining string, ok bool) {
	body := content[idx+len(framePrefix):]
	end := strings.Index(body, frameSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return body[:end], body[end+len(frameSuffix):], true
}

// partialPrefixLen reports how many trailing bytes of content could be the
// start of a frame prefix split across writes.
func partialPrefixLen(content string) int {
	for n := min(len(framePrefix)-1, len(content)); n > 0; n-- {
		if strings.HasSuffix(content, framePrefix[:n]) {
			return n
		}
	}
	return 0
}
