package reconcile

import "strings"

// =============================================================================
// TASK - Canonical task categories
// =============================================================================

// Task is a task category. Canonical tasks come from the closed vocabulary
// below; plan labels with no mapping keep their raw text.
type Task string

const (
	TaskLecture    Task = "Lecture"
	TaskCaseReport Task = "Case Report"
	TaskArticle    Task = "Article"
	TaskWebinar    Task = "Webinar"
	TaskSNSPosting Task = "SNS Posting"
)

// CanonicalTasks lists the closed vocabulary in display order.
var CanonicalTasks = []Task{TaskLecture, TaskCaseReport, TaskArticle, TaskWebinar, TaskSNSPosting}

// taskLookup maps every known free-text label to its canonical task.
// Matching is exact and case-sensitive after trimming.
var taskLookup = map[string]Task{
	"Lecture":           TaskLecture,
	"offline lecture":   TaskLecture,
	"ADF Lecture":       TaskLecture,
	"Academy lectures":  TaskLecture,
	"Academy":           TaskLecture,
	"Hands-on course":   TaskLecture,
	"Hands on training": TaskLecture,
	"Skill up Seminar":  TaskLecture,

	"case report":          TaskCaseReport,
	"Case Report":          TaskCaseReport,
	"Article case":         TaskCaseReport,
	"Clinical case report": TaskCaseReport,
	"T-series case report": TaskCaseReport,

	"Article":        TaskArticle,
	"Clinical Paper": TaskArticle,

	"Webinar": TaskWebinar,

	"SNS Posting":       TaskSNSPosting,
	"Contents creation": TaskSNSPosting,
	"ContentsCreation":  TaskSNSPosting,
	"social activities": TaskSNSPosting,
	"Social engagement": TaskSNSPosting,
	"Social Media":      TaskSNSPosting,
}

// NormalizeTask maps a free-text label to its canonical task. It reports
// false for labels with no entry in the lookup table.
func NormalizeTask(label string) (Task, bool) {
	t, ok := taskLookup[strings.TrimSpace(label)]
	return t, ok
}

// TaskColors is the calendar palette per canonical task.
var TaskColors = map[Task]string{
	TaskLecture:    "#2D5AF5",
	TaskCaseReport: "#00C4CC",
	TaskSNSPosting: "#FF6B6B",
	TaskArticle:    "#FF9F43",
	TaskWebinar:    "#A3CB38",
}

// DefaultTaskColor is used for activities with no canonical task.
const DefaultTaskColor = "#888"
