package dispatcher

import (
	"strings"

	"jobalert/internal/jobs"
	"jobalert/pkg/tgui"
)

// Plain-text replies.
const (
	msgNoJobs            = "❌ No jobs have been posted yet."
	msgAlreadySubscribed = "🔔 You are already subscribed."
	msgSubscribed        = "✅ You are subscribed! You will be notified about new job posts."
	msgUnsubscribed      = "✅ You have been unsubscribed."
	msgNotSubscribed     = "You are not subscribed."
	msgRejected          = "❌ You are not an admin or the ADMIN_SECRET did not match."
	msgJobAdded          = "✅ Job added. Subscribers will be notified."
	msgUnknown           = "Please try again. Send /help for the list of commands."
)

const (
	addJobUsage   = "/addjob|Title|Location|Deadline|Link|Type"
	addJobFormat  = addJobUsage + "|[ADMIN_SECRET]"
	addJobExample = "/addjob|Assistant Teacher|Dhaka|30-10-2025|https://example.com/job|NGO"
)

// The builders below return Telegram HTML; every dynamic value goes through tgui.Esc.

func startText(name string) string {
	greet := "👋 Hello!"
	if name = strings.TrimSpace(name); name != "" {
		greet = "👋 Hello " + tgui.Esc(name).String() + "!"
	}
	return greet + "\n\n" +
		"I am " + tgui.B("Job Alert").String() + ". Send /subscribe to get notified about new job posts.\n\n" +
		"Commands:\n" +
		"/jobs - list current jobs\n" +
		"/subscribe - get notified about new jobs\n" +
		"/help - help\n\n" +
		"Admins can add a job with " + tgui.Code(addJobUsage).String() + "."
}

func helpText() string {
	return "📚 " + tgui.B("Help").String() + "\n\n" +
		"/jobs - list current jobs\n" +
		"/subscribe - subscribe\n" +
		"/unsubscribe - unsubscribe\n\n" +
		"Admin commands:\n" +
		tgui.Code(addJobUsage).String() + "\n" +
		"Type could be: Govt, Private, NGO, etc.\n\n" +
		"Example (admin):\n" +
		tgui.Code(addJobExample).String()
}

func malformedText() string {
	return "⚠️ Wrong format. Use:\n" + tgui.Code(addJobFormat).String()
}

func jobBlock(j jobs.Job) string {
	return tgui.Lines(
		"🏢 "+tgui.B(j.Title),
		"📍 "+tgui.Esc(j.Location),
		"🗓️ Deadline: "+tgui.Esc(j.Deadline),
		"🔗 "+tgui.Esc(j.Link),
		"🏷️ "+tgui.Esc(j.Type),
	).String()
}

// jobListText renders all jobs newest first in a single message.
func jobListText(list []jobs.Job) string {
	blocks := make([]string, 0, len(list))
	for _, j := range jobs.NewestFirst(list) {
		blocks = append(blocks, jobBlock(j))
	}
	return "📢 " + tgui.B("Current job listings:").String() + "\n\n" + strings.Join(blocks, "\n\n")
}

func newJobText(j jobs.Job) string {
	return "📢 " + tgui.B("New job posted!").String() + "\n\n" + jobBlock(j)
}
