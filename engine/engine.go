package engine

import (
	"fmt"
	"time"

	"salescadence/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Artifact kinds produced by the materializer, used for sweep accounting.
const (
	ArtifactEmail = "email"
	ArtifactCall  = "call"
	ArtifactTask  = "task"
)

// Engine drives prospects through their sequence enrollments. It is the only
// writer of enrollment cursors; everything else reads.
type Engine struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// now is swapped out in tests
	now func() time.Time
}

func New(db *gorm.DB, logger *logrus.Logger) *Engine {
	return &Engine{
		DB:     db,
		Logger: logger,
		now:    time.Now,
	}
}

// loadEnrollment fetches an enrollment scoped to its sequence's owner.
func (e *Engine) loadEnrollment(userID, enrollmentID uint) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	err := e.DB.
		Joins("JOIN sequences ON sequences.id = sequence_enrollments.sequence_id").
		Where("sequence_enrollments.id = ? AND sequences.user_id = ?", enrollmentID, userID).
		First(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("loading enrollment %d: %w", enrollmentID, err)
	}
	return &enrollment, nil
}

// advanceCursor moves the cursor with a guard on the previous value so that
// a concurrent sweep or Advance loses cleanly instead of corrupting state.
func (e *Engine) advanceCursor(enrollment *models.SequenceEnrollment, nextIndex int, nextActionAt time.Time) (bool, error) {
	res := e.DB.Model(&models.SequenceEnrollment{}).
		Where("id = ? AND current_step = ? AND status = ?",
			enrollment.ID, enrollment.CurrentStep, models.EnrollmentStatusActive).
		Updates(map[string]interface{}{
			"current_step":   nextIndex,
			"next_action_at": nextActionAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("advancing cursor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	enrollment.CurrentStep = nextIndex
	enrollment.NextActionAt = &nextActionAt
	return true, nil
}

// completeEnrollment closes an enrollment out in a single write so there is
// no observable interval where it is active with the cursor out of bounds.
func (e *Engine) completeEnrollment(enrollment *models.SequenceEnrollment, now time.Time) error {
	stepCount := len(enrollment.Sequence.Steps)
	res := e.DB.Model(&models.SequenceEnrollment{}).
		Where("id = ? AND current_step = ?", enrollment.ID, enrollment.CurrentStep).
		Updates(map[string]interface{}{
			"status":         models.EnrollmentStatusCompleted,
			"current_step":   stepCount,
			"next_action_at": nil,
			"completed_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("completing enrollment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another writer moved the cursor first; leave the row to them.
		return nil
	}
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.CurrentStep = stepCount
	enrollment.NextActionAt = nil
	enrollment.CompletedAt = &now
	return e.updateProspectCache(enrollment.ProspectID, "", "")
}

// updateProspectCache rewrites the prospect's denormalized sequence display
// fields. UI convenience only; the enrollment row stays authoritative.
func (e *Engine) updateProspectCache(prospectID uint, sequenceName, stepName string) error {
	err := e.DB.Model(&models.Prospect{}).Where("id = ?", prospectID).
		Updates(map[string]interface{}{
			"current_sequence_name": sequenceName,
			"current_step_name":     stepName,
		}).Error
	if err != nil {
		return fmt.Errorf("updating prospect %d display fields: %w", prospectID, err)
	}
	return nil
}

func stepDisplayName(step models.SequenceStep) string {
	if step.Name != "" {
		return step.Name
	}
	return fmt.Sprintf("Step %d (%s)", step.StepOrder+1, step.StepType)
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("sequence_steps.step_order ASC")
}
