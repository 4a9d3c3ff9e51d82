package engine

import (
	"fmt"
	"time"

	"salescadence/models"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// SweepResult aggregates one sweep pass. Individual enrollment failures are
// folded into Failed rather than aborting the pass.
type SweepResult struct {
	Processed     int `json:"processed"`
	EmailsCreated int `json:"emails_created"`
	CallsCreated  int `json:"calls_created"`
	TasksCreated  int `json:"tasks_created"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
}

// RunSweep processes every due enrollment for one owner's active sequences:
// materialize the current step, then move the cursor and compute the next
// due time. Designed to run as a single-writer batch job; the conditional
// cursor update makes an accidental overlap lose cleanly rather than race.
func (e *Engine) RunSweep(userID uint) (*SweepResult, error) {
	now := e.now()

	var enrollments []models.SequenceEnrollment
	err := e.DB.
		Joins("JOIN sequences ON sequences.id = sequence_enrollments.sequence_id").
		Where("sequence_enrollments.status = ?", models.EnrollmentStatusActive).
		Where("sequence_enrollments.next_action_at IS NOT NULL AND sequence_enrollments.next_action_at <= ?", now).
		Where("sequences.user_id = ? AND sequences.status = ?", userID, models.SequenceStatusActive).
		Preload("Sequence.Steps", orderedSteps).
		Preload("Prospect").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("selecting due enrollments: %w", err)
	}

	result := &SweepResult{}
	for i := range enrollments {
		enrollment := &enrollments[i]
		if err := e.processDueEnrollment(enrollment, now, result); err != nil {
			e.Logger.WithError(err).WithFields(logrus.Fields{
				"enrollment_id": enrollment.ID,
				"prospect_id":   enrollment.ProspectID,
				"sequence_id":   enrollment.SequenceID,
			}).Error("enrollment processing failed")
			sentry.CaptureException(err)
			e.failEnrollment(enrollment, now, err)
			result.Failed++
		}
	}

	if result.Processed > 0 || result.Completed > 0 || result.Failed > 0 {
		e.Logger.WithFields(logrus.Fields{
			"user_id":   userID,
			"processed": result.Processed,
			"emails":    result.EmailsCreated,
			"calls":     result.CallsCreated,
			"tasks":     result.TasksCreated,
			"completed": result.Completed,
			"failed":    result.Failed,
		}).Info("sequence sweep finished")
	}
	return result, nil
}

func (e *Engine) processDueEnrollment(enrollment *models.SequenceEnrollment, now time.Time, result *SweepResult) error {
	steps := enrollment.Sequence.Steps

	if enrollment.CurrentStep >= len(steps) {
		// Cursor already past the end, usually because steps were deleted
		// after enrollment; close the run out.
		if err := e.completeEnrollment(enrollment, now); err != nil {
			return err
		}
		result.Completed++
		return nil
	}

	step := steps[enrollment.CurrentStep]
	if step.StepType != models.StepTypeWait {
		kind, err := e.MaterializeStep(step, enrollment.Prospect, enrollment.Sequence, enrollment.ID)
		if err != nil {
			return err
		}
		result.countArtifact(kind)
	}

	nextIndex := enrollment.CurrentStep + 1
	if nextIndex >= len(steps) {
		if err := e.completeEnrollment(enrollment, now); err != nil {
			return err
		}
		result.Processed++
		result.Completed++
		return nil
	}

	// The delay is measured from the sweep's "now", not from the previous
	// due time; a late sweep shifts the whole remaining schedule.
	next := steps[nextIndex]
	advanced, err := e.advanceCursor(enrollment, nextIndex, now.Add(next.Delay()))
	if err != nil {
		return err
	}
	if !advanced {
		result.Skipped++
		return nil
	}
	if err := e.updateProspectCache(enrollment.ProspectID, enrollment.Sequence.Name, stepDisplayName(next)); err != nil {
		return err
	}
	result.Processed++
	return nil
}

// failEnrollment terminalizes an enrollment after a processing error. There
// is no automatic retry; a human re-enrolls the prospect.
func (e *Engine) failEnrollment(enrollment *models.SequenceEnrollment, now time.Time, cause error) {
	err := e.DB.Model(&models.SequenceEnrollment{}).Where("id = ?", enrollment.ID).
		Updates(map[string]interface{}{
			"status":         models.EnrollmentStatusFailed,
			"next_action_at": nil,
			"failed_at":      now,
			"last_error":     cause.Error(),
		}).Error
	if err != nil {
		e.Logger.WithError(err).WithField("enrollment_id", enrollment.ID).
			Error("could not mark enrollment as failed")
	}
}

func (r *SweepResult) countArtifact(kind string) {
	switch kind {
	case ArtifactEmail:
		r.EmailsCreated++
	case ArtifactCall:
		r.CallsCreated++
	case ArtifactTask:
		r.TasksCreated++
	}
}
