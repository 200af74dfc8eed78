package services

import (
	"context"
	"fmt"
	"time"

	"github.com/arbordesk/notify/internal/models"
)

// Convenience constructors for well-known notification kinds. Each pre-fills
// title and message templates and picks priority from a small fixed rule set,
// so business collaborators never hand-roll notification text.

// NotifyMeetingReminder announces an upcoming meeting.
func (s *NotificationService) NotifyMeetingReminder(ctx context.Context, userID, meetingTitle string, startsAt time.Time, meetingID string) (*NotificationDTO, error) {
	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindMeetingReminder,
		Title:    "Upcoming meeting",
		Message:  fmt.Sprintf("%q starts at %s", meetingTitle, startsAt.Format("Mon Jan 2 15:04")),
		Priority: models.PriorityHigh,
		Payload:  map[string]any{"meeting_id": meetingID},
	})
}

// NotifyGrantDeadline warns about an approaching grant deadline. Deadlines
// within three days are urgent, everything else high.
func (s *NotificationService) NotifyGrantDeadline(ctx context.Context, userID, grantName string, deadline time.Time, grantID string) (*NotificationDTO, error) {
	until := deadline.Sub(s.now())
	priority := models.PriorityHigh
	if until <= urgentDeadlineWindow {
		priority = models.PriorityUrgent
	}

	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindGrantDeadline,
		Title:    "Grant deadline approaching",
		Message:  fmt.Sprintf("%q is due %s", grantName, pluralDays(until)),
		Priority: priority,
		Payload:  map[string]any{"grant_id": grantID},
	})
}

// NotifyAICompletion reports a finished AI generation task.
func (s *NotificationService) NotifyAICompletion(ctx context.Context, userID, taskName, relatedID string) (*NotificationDTO, error) {
	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindAICompletion,
		Title:    "Content ready",
		Message:  fmt.Sprintf("AI generation for %q has finished", taskName),
		Priority: models.PriorityMedium,
		Payload:  map[string]any{"related_id": relatedID},
	})
}

// NotifySubmissionStatus reports a change to a submission's review state.
func (s *NotificationService) NotifySubmissionStatus(ctx context.Context, userID, submissionTitle, status, submissionID string) (*NotificationDTO, error) {
	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindSubmissionStatus,
		Title:    "Submission update",
		Message:  fmt.Sprintf("%q is now %s", submissionTitle, status),
		Priority: models.PriorityMedium,
		Payload:  map[string]any{"submission_id": submissionID, "status": status},
	})
}

// NotifyEmailSent confirms an outbound email left the system.
func (s *NotificationService) NotifyEmailSent(ctx context.Context, userID, recipient, subject string) (*NotificationDTO, error) {
	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindEmailSent,
		Title:    "Email sent",
		Message:  fmt.Sprintf("%q was delivered to %s", subject, recipient),
		Priority: models.PriorityLow,
		Payload:  map[string]any{"recipient": recipient},
	})
}

// NotifyClientCommunication surfaces an inbound client message.
func (s *NotificationService) NotifyClientCommunication(ctx context.Context, userID, clientName, subject, clientID string) (*NotificationDTO, error) {
	return s.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Kind:     models.KindClientCommunication,
		Title:    "New client message",
		Message:  fmt.Sprintf("%s: %s", clientName, subject),
		Priority: models.PriorityMedium,
		Payload:  map[string]any{"client_id": clientID},
	})
}
