package engine

import (
	"testing"
	"time"

	"salescadence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeEmailStep(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro",
		emailStep("Quick question", "Hi Ada,", 0, 0))

	kind, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 42)
	require.NoError(t, err)
	assert.Equal(t, ArtifactEmail, kind)

	var draft models.EmailDraft
	require.NoError(t, e.DB.First(&draft).Error)
	assert.Equal(t, user.ID, draft.UserID)
	assert.Equal(t, prospect.ID, draft.ProspectID)
	assert.Equal(t, "Quick question", draft.Subject)
	assert.Equal(t, "Hi Ada,", draft.Body)
	assert.Equal(t, models.EmailDraftStatusDraft, draft.Status)
	require.NotNil(t, draft.SequenceID)
	assert.Equal(t, sequence.ID, *draft.SequenceID)
	assert.Equal(t, "Intro", draft.SequenceName)
	require.NotNil(t, draft.StepID)
	assert.Equal(t, sequence.Steps[0].ID, *draft.StepID)
	assert.Equal(t, "Step 1 (email)", draft.StepName)
	require.NotNil(t, draft.EnrollmentID)
	assert.Equal(t, uint(42), *draft.EnrollmentID)
}

func TestMaterializeEmailStepFallbackSubject(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", emailStep("", "Hi,", 0, 0))

	_, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 1)
	require.NoError(t, err)

	var draft models.EmailDraft
	require.NoError(t, e.DB.First(&draft).Error)
	assert.Equal(t, "Follow up with Ada Lovelace", draft.Subject)
}

func TestMaterializeCallStep(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	// A two day delay governs when the step becomes current, never the
	// task's own due date.
	sequence := createSequence(t, e, user.ID, "Intro", callStep("Open with the pricing question", 2, 0))

	kind, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 7)
	require.NoError(t, err)
	assert.Equal(t, ArtifactCall, kind)

	var task models.OutreachTask
	require.NoError(t, e.DB.First(&task).Error)
	assert.Equal(t, "Call: Ada Lovelace", task.Title)
	assert.Equal(t, "Open with the pricing question", task.Description)
	assert.Equal(t, models.StepTypeCall, task.TaskType)
	assert.Equal(t, models.TaskStatusToDo, task.Status)
	assert.Equal(t, models.TaskPriorityHigh, task.Priority)
	require.NotNil(t, task.DueAt)
	assert.WithinDuration(t, base, *task.DueAt, time.Second)
}

func TestMaterializeCallStepFallbackDescription(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", callStep("", 0, 0))

	_, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 1)
	require.NoError(t, err)

	var task models.OutreachTask
	require.NoError(t, e.DB.First(&task).Error)
	assert.Contains(t, task.Description, "Ada Lovelace")
	assert.Contains(t, task.Description, "Intro")
}

func TestMaterializeLinkedInStep(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", models.SequenceStep{
		StepType:  models.StepTypeLinkedIn,
		TaskNotes: "Comment on her latest post first",
	})

	kind, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 1)
	require.NoError(t, err)
	assert.Equal(t, ArtifactTask, kind)

	var task models.OutreachTask
	require.NoError(t, e.DB.First(&task).Error)
	assert.Equal(t, "LinkedIn outreach: Ada Lovelace", task.Title)
	assert.Equal(t, "Comment on her latest post first", task.Description)
	assert.Equal(t, models.StepTypeLinkedIn, task.TaskType)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
}

func TestMaterializeTaskStep(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", models.SequenceStep{
		StepType: models.StepTypeTask,
	})

	kind, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 1)
	require.NoError(t, err)
	assert.Equal(t, ArtifactTask, kind)

	var task models.OutreachTask
	require.NoError(t, e.DB.First(&task).Error)
	assert.Equal(t, "Task: Ada Lovelace", task.Title)
	assert.Equal(t, models.StepTypeTask, task.TaskType)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
}

func TestMaterializeWaitStepCreatesNothing(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", waitStep(1, 0))

	kind, err := e.MaterializeStep(sequence.Steps[0], prospect, sequence, 1)
	require.NoError(t, err)
	assert.Empty(t, kind)

	assert.Equal(t, int64(0), countRows(t, e, &models.EmailDraft{}))
	assert.Equal(t, int64(0), countRows(t, e, &models.OutreachTask{}))
}

func TestMaterializeUnknownStepTypeFails(t *testing.T) {
	e := newTestEngine(t)
	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Intro", emailStep("Hi", "", 0, 0))

	_, err := e.MaterializeStep(models.SequenceStep{StepType: "sms"}, prospect, sequence, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported step type")
}
