package engine

import (
	"testing"
	"time"

	"salescadence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks one enrollment through email, wait, call from enrollment to
// completion across three sweep passes.
func TestSweepEmailWaitCallToCompletion(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding",
		emailStep("Welcome", "Hi Ada,", 0, 0),
		waitStep(1, 0),
		callStep("Check in on the trial", 0, 0))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	enrollment := getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, 0, enrollment.CurrentStep)
	require.NotNil(t, enrollment.NextActionAt)
	assert.WithinDuration(t, base, *enrollment.NextActionAt, time.Second)

	// First pass: the email step is due, a draft comes out and the cursor
	// lands on the wait step one day out.
	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.EmailsCreated)
	assert.Equal(t, int64(1), countRows(t, e, &models.EmailDraft{}))

	enrollment = getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, 1, enrollment.CurrentStep)
	require.NotNil(t, enrollment.NextActionAt)
	assert.WithinDuration(t, base.Add(24*time.Hour), *enrollment.NextActionAt, time.Second)

	// Second pass a day later: the wait step produces nothing and hands
	// over to the zero delay call step.
	setClock(e, base.Add(24*time.Hour))
	result, err = e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.EmailsCreated)
	assert.Equal(t, 0, result.CallsCreated)

	enrollment = getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, 2, enrollment.CurrentStep)
	require.NotNil(t, enrollment.NextActionAt)
	assert.WithinDuration(t, base.Add(24*time.Hour), *enrollment.NextActionAt, time.Second)

	// Third pass: the call task is created and, with no step after it, the
	// run closes out.
	result, err = e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.CallsCreated)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, int64(1), countRows(t, e, &models.OutreachTask{}))

	enrollment = getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	assert.Equal(t, 3, enrollment.CurrentStep)
	assert.Nil(t, enrollment.NextActionAt)
	require.NotNil(t, enrollment.CompletedAt)

	cached := getProspect(t, e, prospect.ID)
	assert.Empty(t, cached.CurrentSequenceName)
	assert.Empty(t, cached.CurrentStepName)
}

func TestSweepIsIdempotentWhenNothingIsDue(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding",
		emailStep("Welcome", "", 0, 0),
		emailStep("Still there?", "", 3, 0))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	_, err = e.RunSweep(user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), countRows(t, e, &models.EmailDraft{}))

	// The second step is three days out; an immediate re-sweep must not
	// touch the enrollment or mint another draft.
	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.EmailsCreated)
	assert.Equal(t, int64(1), countRows(t, e, &models.EmailDraft{}))

	enrollment := getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, 1, enrollment.CurrentStep)
}

func TestSweepComputesDelayFromSweepTime(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding",
		emailStep("Welcome", "", 0, 0),
		callStep("", 2, 3))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	// Sweep four hours late; the two day three hour delay counts from the
	// sweep, not from the original due time.
	late := base.Add(4 * time.Hour)
	setClock(e, late)
	_, err = e.RunSweep(user.ID)
	require.NoError(t, err)

	enrollment := getEnrollment(t, e, prospect.ID, sequence.ID)
	require.NotNil(t, enrollment.NextActionAt)
	assert.WithinDuration(t, late.Add(51*time.Hour), *enrollment.NextActionAt, time.Second)
}

func TestSweepIsolatesPerEnrollmentFailures(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	healthy := createProspect(t, e, user.ID, "Ada Lovelace")
	broken := createProspect(t, e, user.ID, "Grace Hopper")

	goodSeq := createSequence(t, e, user.ID, "Onboarding", emailStep("Welcome", "", 0, 0))
	// A step type the materializer does not know about. Nothing writes
	// these through the API; this simulates bad data already in the table.
	badSeq := createSequence(t, e, user.ID, "Legacy", models.SequenceStep{StepType: "sms"})

	_, err := e.Enroll(user.ID, goodSeq.ID, []uint{healthy.ID})
	require.NoError(t, err)
	_, err = e.Enroll(user.ID, badSeq.ID, []uint{broken.ID})
	require.NoError(t, err)

	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.EmailsCreated)

	failed := getEnrollment(t, e, broken.ID, badSeq.ID)
	assert.Equal(t, models.EnrollmentStatusFailed, failed.Status)
	assert.Nil(t, failed.NextActionAt)
	require.NotNil(t, failed.FailedAt)
	assert.Contains(t, failed.LastError, "unsupported step type")

	// The healthy enrollment finished its single step untouched by the
	// neighbor's failure.
	ok := getEnrollment(t, e, healthy.ID, goodSeq.ID)
	assert.Equal(t, models.EnrollmentStatusCompleted, ok.Status)
}

func TestSweepSkipsPausedEnrollments(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding", emailStep("Welcome", "", 0, 0))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	enrollment := getEnrollment(t, e, prospect.ID, sequence.ID)
	require.NoError(t, e.SetStatus(user.ID, enrollment.ID, models.EnrollmentStatusPaused))

	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, int64(0), countRows(t, e, &models.EmailDraft{}))
}

func TestSweepSkipsEnrollmentsOfInactiveSequences(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding", emailStep("Welcome", "", 0, 0))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	require.NoError(t, e.DB.Model(&models.Sequence{}).Where("id = ?", sequence.ID).
		Update("status", models.SequenceStatusInactive).Error)

	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, int64(0), countRows(t, e, &models.EmailDraft{}))
}

func TestSweepCompletesEnrollmentWithCursorPastEnd(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	user := createUser(t, e)
	prospect := createProspect(t, e, user.ID, "Ada Lovelace")
	sequence := createSequence(t, e, user.ID, "Onboarding",
		emailStep("Welcome", "", 0, 0),
		emailStep("Still there?", "", 1, 0))

	_, err := e.Enroll(user.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	// Simulate steps that were deleted after the cursor moved onto them.
	enrollment := getEnrollment(t, e, prospect.ID, sequence.ID)
	require.NoError(t, e.DB.Model(&models.SequenceEnrollment{}).Where("id = ?", enrollment.ID).
		Update("current_step", 5).Error)

	result, err := e.RunSweep(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, int64(0), countRows(t, e, &models.EmailDraft{}))

	enrollment = getEnrollment(t, e, prospect.ID, sequence.ID)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
}

func TestSweepOnlyTouchesOwnersEnrollments(t *testing.T) {
	e := newTestEngine(t)
	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	setClock(e, base)

	owner := createUser(t, e)
	other := createUser(t, e)
	prospect := createProspect(t, e, owner.ID, "Ada Lovelace")
	sequence := createSequence(t, e, owner.ID, "Onboarding", emailStep("Welcome", "", 0, 0))

	_, err := e.Enroll(owner.ID, sequence.ID, []uint{prospect.ID})
	require.NoError(t, err)

	result, err := e.RunSweep(other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, int64(0), countRows(t, e, &models.EmailDraft{}))

	result, err = e.RunSweep(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}
