package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/notify"
	"task-manager/internal/repository"
)

const dueSoonWindow = 48 * time.Hour

// ReminderService builds the daily deadline digest for open tasks.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	notifier notify.Notifier
}

func NewReminderService(taskRepo *repository.TaskRepository, notifier notify.Notifier) *ReminderService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReminderService{taskRepo: taskRepo, notifier: notifier}
}

// DeadlineDigest lists open tasks with a deadline, overdue and due-soon ones marked.
func (s *ReminderService) DeadlineDigest(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListOpenWithDeadline(ctx)
	if err != nil {
		return "", err
	}

	var overdue, upcoming []model.Task
	for _, task := range tasks {
		if task.Deadline == nil || !task.Status.Open() {
			continue
		}
		if now.After(*task.Deadline) {
			overdue = append(overdue, task)
		} else {
			upcoming = append(upcoming, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Deadline digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, task := range overdue {
			builder.WriteString(formatDigestTask(task, now))
		}
	}

	builder.WriteString("\n⏰ <b>Upcoming</b>\n")
	if len(upcoming) == 0 {
		builder.WriteString("— no upcoming deadlines\n")
	} else {
		for _, task := range upcoming {
			builder.WriteString(formatDigestTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// SendDigest builds the digest and pushes it to the notifier.
func (s *ReminderService) SendDigest(ctx context.Context, now time.Time) error {
	text, err := s.DeadlineDigest(ctx, now)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	return s.notifier.Notify(ctx, text)
}

func formatDigestTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	d := task.Deadline.In(now.Location())
	icon := "🟢"
	switch {
	case now.After(d):
		icon = "⚠️"
	case d.Sub(now) <= dueSoonWindow:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s #%d %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Title))))
	sb.WriteString(fmt.Sprintf(" [%s]", task.Status))

	if task.Category != nil {
		if name := strings.TrimSpace(task.Category.Name); name != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
		}
	}

	if now.After(d) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02")))
	} else {
		daysLeft := int(d.Sub(now).Hours()/24) + 1
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d day(s) left", d.Format("2006-01-02"), daysLeft))
	}

	if task.AssignedUser != nil {
		sb.WriteString(fmt.Sprintf("\n   👤 %s", html.EscapeString(task.AssignedUser.Name)))
	} else {
		sb.WriteString("\n   👤 unassigned")
	}

	sb.WriteByte('\n')
	return sb.String()
}
