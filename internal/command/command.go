// Package command turns raw chat text into a typed Command.
//
// Parsing is a single explicit step; the dispatcher switches on Kind and
// never looks at the raw text again.
package command

// Kind identifies a Command variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindHelp
	KindListJobs
	KindSubscribe
	KindUnsubscribe
	KindAddJob
	KindAddJobMalformed
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindStart:           "start",
	KindHelp:            "help",
	KindListJobs:        "jobs",
	KindSubscribe:       "subscribe",
	KindUnsubscribe:     "unsubscribe",
	KindAddJob:          "addjob",
	KindAddJobMalformed: "addjob_malformed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Command is the parsed form of one inbound message.
//
// Only the fields relevant to Kind are set:
//   - KindStart: DisplayName
//   - KindAddJob: Job, Secret
type Command struct {
	Kind        Kind
	DisplayName string
	Job         JobFields
	Secret      string
}

// JobFields are the trimmed values extracted from an /addjob line.
type JobFields struct {
	Title    string
	Location string
	Deadline string
	Link     string
	Type     string
}
