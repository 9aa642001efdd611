package planner

import (
	"errors"
	"strings"
	"time"

	"planner/internal/task"
)

const (
	TitleInvalidInput   = "Invalid Input"
	TitleMissingDetails = "Missing Details"
	TitleTaskAdded      = "Task Added"
	TitleScheduledTasks = "Scheduled Tasks"
	TitleTaskReminder   = "Task Reminder"
	TitleTodaysTasks    = "Today's Tasks"
	TitleHelp           = "Help"
	TitleError          = "Error"

	BodyInvalidFormat = "Please enter valid hour and minute."
	BodyInvalidRange  = "Hour must be 0-23 and minute must be 0-59."
	BodyMissing       = "Task name and date are required."
	BodyTaskAdded     = "Your task has been added and scheduled!"
	BodyNoTasks       = "No tasks scheduled."
	BodyInternal      = "Something went wrong. Please try again."

	defaultHelp = "Commands: add, list, help, quit."
)

// timeLayout is how task instants are rendered to users.
const timeLayout = "2006-01-02 15:04"

// validationMessage maps a NewFromDraft error to its title and body.
// ok is false for errors that are not validation failures.
func validationMessage(err error) (title, body string, ok bool) {
	var (
		fe *task.FormatError
		me *task.MissingFieldError
		re *task.RangeError
	)
	switch {
	case errors.As(err, &fe):
		return TitleInvalidInput, BodyInvalidFormat, true
	case errors.As(err, &me):
		return TitleMissingDetails, BodyMissing, true
	case errors.As(err, &re):
		return TitleInvalidInput, BodyInvalidRange, true
	}
	return "", "", false
}

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	_, _, ok := validationMessage(err)
	return ok
}

// FormatTaskList renders one "<name> - <description> at <time>" line per task
// or the empty sentinel.
func FormatTaskList(tasks []task.Task, loc *time.Location) string {
	if len(tasks) == 0 {
		return BodyNoTasks
	}
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatTaskLine(t, loc))
	}
	return b.String()
}

func FormatTaskLine(t task.Task, loc *time.Location) string {
	at := t.Time
	if loc != nil {
		at = at.In(loc)
	}
	return t.Name + " - " + t.Description + " at " + at.Format(timeLayout)
}

// ReminderBody is the body shown when a task's reminder fires.
func ReminderBody(t task.Task) string {
	return "It's time for: " + t.Name + "\n" + t.Description
}
