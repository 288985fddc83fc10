package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/taskflow/internal/domain"
)

func newNotification(userID uuid.UUID, typ domain.NotificationType, task *domain.Task, title, message string) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		CreatedAt: time.Now().UTC(),
	}
}

// Nobody is notified about their own actions.

func reviewRequestedNotification(project *domain.Project, task *domain.Task, actorID uuid.UUID) *domain.Notification {
	if project.LeaderID == nil || *project.LeaderID == actorID {
		return nil
	}
	return newNotification(*project.LeaderID, domain.NotificationReviewRequested, task,
		"Review requested", "\""+task.Title+"\" is waiting for your review")
}

func childrenCompletedNotification(project *domain.Project, task *domain.Task, actorID uuid.UUID) *domain.Notification {
	if project.LeaderID == nil || *project.LeaderID == actorID {
		return nil
	}
	return newNotification(*project.LeaderID, domain.NotificationChildrenComplete, task,
		"Subtasks completed", "All subtasks of \""+task.Title+"\" are done and it is ready for review")
}

func approvedNotification(task *domain.Task, actorID uuid.UUID) *domain.Notification {
	if task.AssigneeID == nil || *task.AssigneeID == actorID {
		return nil
	}
	return newNotification(*task.AssigneeID, domain.NotificationApproved, task,
		"Task approved", "\""+task.Title+"\" was approved")
}

func returnedNotification(task *domain.Task, actorID uuid.UUID, reason string) *domain.Notification {
	if task.AssigneeID == nil || *task.AssigneeID == actorID {
		return nil
	}
	msg := "\"" + task.Title + "\" was returned for rework"
	if reason != "" {
		msg += ": " + reason
	}
	return newNotification(*task.AssigneeID, domain.NotificationReturned, task, "Task returned", msg)
}

func assignedNotification(task *domain.Task, actorID uuid.UUID) *domain.Notification {
	if task.AssigneeID == nil || *task.AssigneeID == actorID {
		return nil
	}
	return newNotification(*task.AssigneeID, domain.NotificationAssigned, task,
		"Task assigned", "You were assigned \""+task.Title+"\"")
}
