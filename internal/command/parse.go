package command

import (
	"strings"
)

const (
	wordStart       = "/start"
	wordHelp        = "/help"
	wordJobs        = "/jobs"
	wordSubscribe   = "/subscribe"
	wordUnsubscribe = "/unsubscribe"
	wordAddJob      = "/addjob"

	fieldSep = "|"

	// requiredJobFields is title, location, deadline, link, type.
	requiredJobFields = 5
)

// Parse converts text into exactly one Command. displayName is the sender's
// first name and is only used by /start.
//
// The command token is the leading run of text up to the first whitespace or
// '|', compared case-insensitively against the command word after removing a
// "@botname" suffix. Prefix matches do not count: "/subscribeNow" is Unknown.
func Parse(text, displayName string) Command {
	text = strings.TrimSpace(text)
	tok := commandToken(text)
	switch normalizeToken(tok) {
	case wordStart:
		return Command{Kind: KindStart, DisplayName: strings.TrimSpace(displayName)}
	case wordHelp:
		return Command{Kind: KindHelp}
	case wordJobs:
		return Command{Kind: KindListJobs}
	case wordSubscribe:
		return Command{Kind: KindSubscribe}
	case wordUnsubscribe:
		return Command{Kind: KindUnsubscribe}
	case wordAddJob:
		return parseAddJob(text, tok)
	default:
		return Command{Kind: KindUnknown}
	}
}

// commandToken returns the raw leading token of text.
func commandToken(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	end := strings.IndexFunc(text, func(r rune) bool {
		return r == '|' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if end < 0 {
		return text
	}
	return text[:end]
}

func normalizeToken(tok string) string {
	if at := strings.IndexByte(tok, '@'); at >= 0 {
		tok = tok[:at]
	}
	return strings.ToLower(tok)
}

// parseAddJob extracts the '|'-separated fields following the command token.
//
// The first field carries the token. If nothing else is in it, the whole field
// is dropped ("/addjob|Title|..."); otherwise only the token is stripped and
// the remainder is the title ("/addjob Title|...").
func parseAddJob(text, tok string) Command {
	parts := strings.Split(text, fieldSep)
	head := strings.TrimSpace(strings.TrimPrefix(parts[0], tok))
	if head == "" {
		parts = parts[1:]
	} else {
		parts[0] = head
	}

	if len(parts) < requiredJobFields {
		return Command{Kind: KindAddJobMalformed}
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return Command{
		Kind: KindAddJob,
		Job: JobFields{
			Title:    parts[0],
			Location: parts[1],
			Deadline: parts[2],
			Link:     parts[3],
			Type:     parts[4],
		},
		Secret: secretField(parts),
	}
}

// secretField picks the optional admin secret: the 6th field when exactly six
// are present, otherwise the 7th when there are more.
func secretField(parts []string) string {
	switch {
	case len(parts) == requiredJobFields+1:
		return parts[requiredJobFields]
	case len(parts) > requiredJobFields+1:
		return parts[requiredJobFields+1]
	default:
		return ""
	}
}
