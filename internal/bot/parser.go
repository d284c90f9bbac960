package bot

import "strings"

// Invocation is the parsed form of one command message. Ephemeral: built per
// event, discarded after handling.
type Invocation struct {
	Identity       string
	ConversationID string
	Command        string
	Args           []string
	RawText        string
	IsGroup        bool

	Media     []byte
	MediaMIME string
}

// Parse turns raw message text into an Invocation, or nil when the text does
// not start with the command prefix. Pure function, no I/O.
func Parse(prefix, text string) *Invocation {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return nil
	}
	rest := text[len(prefix):]
	fields := strings.Fields(rest)

	inv := &Invocation{RawText: text}
	if len(fields) == 0 {
		// bare prefix is still a command message, just an empty one
		inv.Args = []string{}
		return inv
	}
	inv.Command = strings.ToLower(fields[0])
	inv.Args = fields[1:]
	return inv
}

// SplitList applies the secondary argument convention: the args are joined
// back and split on "|", each part trimmed. Used by multi-value commands
// (poll options, custom command templates).
func SplitList(args []string) []string {
	joined := strings.Join(args, " ")
	var out []string
	for _, part := range strings.Split(joined, "|") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
