package engine

import (
	"errors"
	"fmt"

	"salescadence/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Enroll adds prospects to a sequence. A prospect who already has an
// enrollment for the sequence (completed, failed or otherwise) is reset to a
// fresh run rather than rejected. The sequence must be active and have at
// least one step, and every prospect must exist, before any row is written.
func (e *Engine) Enroll(userID, sequenceID uint, prospectIDs []uint) (int, error) {
	if len(prospectIDs) == 0 {
		return 0, errors.New("no prospects given")
	}

	var sequence models.Sequence
	err := e.DB.Where("id = ? AND user_id = ?", sequenceID, userID).
		Preload("Steps", orderedSteps).
		First(&sequence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("sequence %d not found", sequenceID)
		}
		return 0, fmt.Errorf("loading sequence %d: %w", sequenceID, err)
	}
	if sequence.Status != models.SequenceStatusActive {
		return 0, fmt.Errorf("sequence %q is not active", sequence.Name)
	}
	if len(sequence.Steps) == 0 {
		return 0, fmt.Errorf("sequence %q has no steps", sequence.Name)
	}

	var prospects []models.Prospect
	if err := e.DB.Where("id IN ? AND user_id = ?", prospectIDs, userID).Find(&prospects).Error; err != nil {
		return 0, fmt.Errorf("loading prospects: %w", err)
	}
	if len(prospects) != len(prospectIDs) {
		return 0, fmt.Errorf("%d of %d prospects not found", len(prospectIDs)-len(prospects), len(prospectIDs))
	}

	firstStep := sequence.Steps[0]
	enrolled := 0
	for _, prospect := range prospects {
		nextActionAt := e.now().Add(firstStep.Delay())

		var enrollment models.SequenceEnrollment
		err := e.DB.Where("prospect_id = ? AND sequence_id = ?", prospect.ID, sequenceID).
			First(&enrollment).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"current_step":   0,
				"status":         models.EnrollmentStatusActive,
				"next_action_at": nextActionAt,
				"paused_at":      nil,
				"completed_at":   nil,
				"failed_at":      nil,
				"last_error":     "",
			}
			if err := e.DB.Model(&enrollment).Updates(updates).Error; err != nil {
				return enrolled, fmt.Errorf("resetting enrollment for prospect %d: %w", prospect.ID, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			enrollment = models.SequenceEnrollment{
				ProspectID:   prospect.ID,
				SequenceID:   sequenceID,
				CurrentStep:  0,
				Status:       models.EnrollmentStatusActive,
				NextActionAt: &nextActionAt,
			}
			if err := e.DB.Create(&enrollment).Error; err != nil {
				return enrolled, fmt.Errorf("enrolling prospect %d: %w", prospect.ID, err)
			}
		default:
			return enrolled, fmt.Errorf("loading enrollment for prospect %d: %w", prospect.ID, err)
		}

		if err := e.updateProspectCache(prospect.ID, sequence.Name, stepDisplayName(firstStep)); err != nil {
			return enrolled, err
		}
		enrolled++
	}

	e.Logger.WithFields(logrus.Fields{
		"sequence_id": sequenceID,
		"enrolled":    enrolled,
	}).Info("prospects enrolled in sequence")

	return enrolled, nil
}

// SetStatus applies a lifecycle transition to an enrollment. Pause keeps the
// cursor and next_action_at intact so resume is trivial. Transitions out of
// terminal states are not re-validated; callers own transition sanity.
func (e *Engine) SetStatus(userID, enrollmentID uint, status string) error {
	enrollment, err := e.loadEnrollment(userID, enrollmentID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": status}
	now := e.now()
	switch status {
	case models.EnrollmentStatusActive:
		updates["paused_at"] = nil
	case models.EnrollmentStatusPaused:
		updates["paused_at"] = now
	case models.EnrollmentStatusCompleted:
		updates["completed_at"] = now
		updates["next_action_at"] = nil
	case models.EnrollmentStatusFailed:
		updates["failed_at"] = now
		updates["next_action_at"] = nil
	default:
		return fmt.Errorf("unknown enrollment status %q", status)
	}

	if err := e.DB.Model(enrollment).Updates(updates).Error; err != nil {
		return fmt.Errorf("updating enrollment %d status: %w", enrollmentID, err)
	}
	return nil
}

// Remove hard-deletes an enrollment and clears the prospect's display
// fields. Distinct from completion; there is no way back short of
// re-enrolling.
func (e *Engine) Remove(userID, enrollmentID uint) error {
	enrollment, err := e.loadEnrollment(userID, enrollmentID)
	if err != nil {
		return err
	}
	if err := e.DB.Unscoped().Delete(enrollment).Error; err != nil {
		return fmt.Errorf("deleting enrollment %d: %w", enrollmentID, err)
	}
	return e.updateProspectCache(enrollment.ProspectID, "", "")
}
