package engine

import (
	"fmt"

	"salescadence/models"
	"salescadence/utils"
)

// MaterializeStep creates the concrete downstream artifact for a step: a
// draft email for email steps, a to-do task for call/linkedin/task steps,
// nothing for wait steps. The artifact belongs to its channel subsystem
// after creation; the engine never revisits it. Returns the artifact kind
// created, empty for wait.
func (e *Engine) MaterializeStep(step models.SequenceStep, prospect models.Prospect, sequence models.Sequence, enrollmentID uint) (string, error) {
	switch step.StepType {
	case models.StepTypeWait:
		return "", nil

	case models.StepTypeEmail:
		subject := step.EmailSubject
		if subject == "" {
			subject = fmt.Sprintf("Follow up with %s", prospect.Name)
		}
		draft := models.EmailDraft{
			UserID:       prospect.UserID,
			ProspectID:   prospect.ID,
			Subject:      subject,
			Body:         step.EmailBody,
			Status:       models.EmailDraftStatusDraft,
			SequenceID:   utils.Pointer(sequence.ID),
			SequenceName: sequence.Name,
			StepID:       utils.Pointer(step.ID),
			StepName:     stepDisplayName(step),
			EnrollmentID: utils.Pointer(enrollmentID),
		}
		if err := e.DB.Create(&draft).Error; err != nil {
			return "", fmt.Errorf("creating draft email: %w", err)
		}
		return ArtifactEmail, nil

	case models.StepTypeCall:
		description := step.CallScript
		if description == "" {
			description = fmt.Sprintf("Call %s about the %s sequence", prospect.Name, sequence.Name)
		}
		task := models.OutreachTask{
			UserID:       prospect.UserID,
			ProspectID:   prospect.ID,
			Title:        fmt.Sprintf("Call: %s", prospect.Name),
			Description:  description,
			TaskType:     models.StepTypeCall,
			Status:       models.TaskStatusToDo,
			Priority:     models.TaskPriorityHigh,
			DueAt:        utils.Pointer(e.now()),
			SequenceID:   utils.Pointer(sequence.ID),
			SequenceName: sequence.Name,
			StepID:       utils.Pointer(step.ID),
			StepName:     stepDisplayName(step),
			EnrollmentID: utils.Pointer(enrollmentID),
		}
		if err := e.DB.Create(&task).Error; err != nil {
			return "", fmt.Errorf("creating call task: %w", err)
		}
		return ArtifactCall, nil

	case models.StepTypeLinkedIn, models.StepTypeTask:
		title := fmt.Sprintf("Task: %s", prospect.Name)
		if step.StepType == models.StepTypeLinkedIn {
			title = fmt.Sprintf("LinkedIn outreach: %s", prospect.Name)
		}
		description := step.TaskNotes
		if description == "" {
			description = fmt.Sprintf("%s for %s (%s sequence)", stepDisplayName(step), prospect.Name, sequence.Name)
		}
		task := models.OutreachTask{
			UserID:       prospect.UserID,
			ProspectID:   prospect.ID,
			Title:        title,
			Description:  description,
			TaskType:     step.StepType,
			Status:       models.TaskStatusToDo,
			Priority:     models.TaskPriorityMedium,
			DueAt:        utils.Pointer(e.now()),
			SequenceID:   utils.Pointer(sequence.ID),
			SequenceName: sequence.Name,
			StepID:       utils.Pointer(step.ID),
			StepName:     stepDisplayName(step),
			EnrollmentID: utils.Pointer(enrollmentID),
		}
		if err := e.DB.Create(&task).Error; err != nil {
			return "", fmt.Errorf("creating outreach task: %w", err)
		}
		return ArtifactTask, nil

	default:
		return "", fmt.Errorf("unsupported step type %q", step.StepType)
	}
}
