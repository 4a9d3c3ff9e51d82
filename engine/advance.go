package engine

import (
	"errors"
	"fmt"
	"time"

	"salescadence/models"

	"gorm.io/gorm"
)

// StepInfo describes the step an enrollment moved onto.
type StepInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AdvanceResult reports what Advance did. A missing or non-pending
// enrollment is a benign no-op, not an error; completion signals can arrive
// after a prospect has already left the sequence.
type AdvanceResult struct {
	Enrolled  bool      `json:"enrolled"`
	Advanced  bool      `json:"advanced"`
	Completed bool      `json:"completed"`
	Reason    string    `json:"reason,omitempty"`
	NextStep  *StepInfo `json:"next_step,omitempty"`
}

// Advance moves an enrollment past its current step when the real-world
// action for that step completes: a call received an outcome, or an email
// finished sending. It lets an enrollment progress ahead of its own
// schedule once a human has actually acted, instead of waiting for the next
// sweep.
//
// The cursor only moves while the enrollment is still sitting on a step of
// the completed channel; once a sweep has moved the cursor on, the signal
// is stale and ignored. Paused and terminal enrollments are never advanced.
// When the new step has zero delay and is not a wait, it is processed
// immediately the way a sweep would process it, so it does not sit idle
// until the next sweep and is not materialized a second time by it.
func (e *Engine) Advance(userID, prospectID, sequenceID uint, channel string) (*AdvanceResult, error) {
	var enrollment models.SequenceEnrollment
	err := e.DB.
		Joins("JOIN sequences ON sequences.id = sequence_enrollments.sequence_id").
		Where("sequence_enrollments.prospect_id = ? AND sequence_enrollments.sequence_id = ?", prospectID, sequenceID).
		Where("sequences.user_id = ?", userID).
		Preload("Sequence.Steps", orderedSteps).
		Preload("Prospect").
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AdvanceResult{Enrolled: false, Reason: "not enrolled"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading enrollment for prospect %d: %w", prospectID, err)
	}

	result := &AdvanceResult{Enrolled: true}
	if enrollment.Status != models.EnrollmentStatusActive {
		result.Reason = fmt.Sprintf("enrollment is %s", enrollment.Status)
		return result, nil
	}

	steps := enrollment.Sequence.Steps
	now := e.now()

	if enrollment.CurrentStep >= len(steps) {
		if err := e.completeEnrollment(&enrollment, now); err != nil {
			return nil, err
		}
		result.Completed = true
		return result, nil
	}

	current := steps[enrollment.CurrentStep]
	if current.StepType != channel {
		result.Reason = fmt.Sprintf("current step is %s, not %s", current.StepType, channel)
		return result, nil
	}

	nextIndex := enrollment.CurrentStep + 1
	if nextIndex >= len(steps) {
		if err := e.completeEnrollment(&enrollment, now); err != nil {
			return nil, err
		}
		result.Advanced = true
		result.Completed = true
		return result, nil
	}

	next := steps[nextIndex]
	advanced, err := e.advanceCursor(&enrollment, nextIndex, now.Add(next.Delay()))
	if err != nil {
		return nil, err
	}
	if !advanced {
		result.Reason = "cursor moved concurrently"
		return result, nil
	}
	if err := e.updateProspectCache(enrollment.ProspectID, enrollment.Sequence.Name, stepDisplayName(next)); err != nil {
		return nil, err
	}
	result.Advanced = true
	result.NextStep = &StepInfo{Name: stepDisplayName(next), Type: next.StepType}

	if next.Delay() == 0 && next.StepType != models.StepTypeWait {
		if err := e.processZeroDelayStep(&enrollment, next, now, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// processZeroDelayStep materializes a zero-delay step reached by Advance and
// moves the cursor past it, mirroring what a sweep pass would do at this
// instant. Without the second cursor move the following sweep would
// materialize the same step again.
func (e *Engine) processZeroDelayStep(enrollment *models.SequenceEnrollment, step models.SequenceStep, now time.Time, result *AdvanceResult) error {
	if _, err := e.MaterializeStep(step, enrollment.Prospect, enrollment.Sequence, enrollment.ID); err != nil {
		return err
	}

	steps := enrollment.Sequence.Steps
	followIndex := enrollment.CurrentStep + 1
	if followIndex >= len(steps) {
		if err := e.completeEnrollment(enrollment, now); err != nil {
			return err
		}
		result.Completed = true
		return nil
	}

	follow := steps[followIndex]
	advanced, err := e.advanceCursor(enrollment, followIndex, now.Add(follow.Delay()))
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	return e.updateProspectCache(enrollment.ProspectID, enrollment.Sequence.Name, stepDisplayName(follow))
}
