package engine

import (
	"fmt"
	"io"
	"testing"
	"time"

	"salescadence/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Prospect{},
		&models.Sequence{},
		&models.SequenceStep{},
		&models.SequenceEnrollment{},
		&models.EmailDraft{},
		&models.OutreachTask{},
	))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return New(db, logger)
}

func setClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func createUser(t *testing.T, e *Engine) models.User {
	t.Helper()
	user := models.User{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "irrelevant",
	}
	require.NoError(t, e.DB.Create(&user).Error)
	return user
}

func createProspect(t *testing.T, e *Engine, userID uint, name string) models.Prospect {
	t.Helper()
	prospect := models.Prospect{
		UserID:  userID,
		Name:    name,
		Email:   fmt.Sprintf("%s@example.com", uuid.NewString()),
		Company: "Acme Corp",
	}
	require.NoError(t, e.DB.Create(&prospect).Error)
	return prospect
}

func createSequence(t *testing.T, e *Engine, userID uint, name string, steps ...models.SequenceStep) models.Sequence {
	t.Helper()
	sequence := models.Sequence{
		UserID: userID,
		Name:   name,
		Status: models.SequenceStatusActive,
	}
	for i := range steps {
		steps[i].StepOrder = i
	}
	sequence.Steps = steps
	require.NoError(t, e.DB.Create(&sequence).Error)
	return sequence
}

func getEnrollment(t *testing.T, e *Engine, prospectID, sequenceID uint) models.SequenceEnrollment {
	t.Helper()
	var enrollment models.SequenceEnrollment
	require.NoError(t, e.DB.
		Where("prospect_id = ? AND sequence_id = ?", prospectID, sequenceID).
		First(&enrollment).Error)
	return enrollment
}

func getProspect(t *testing.T, e *Engine, id uint) models.Prospect {
	t.Helper()
	var prospect models.Prospect
	require.NoError(t, e.DB.First(&prospect, id).Error)
	return prospect
}

func countRows(t *testing.T, e *Engine, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.DB.Model(model).Count(&count).Error)
	return count
}

func emailStep(subject, body string, delayDays, delayHours int) models.SequenceStep {
	return models.SequenceStep{
		StepType:     models.StepTypeEmail,
		EmailSubject: subject,
		EmailBody:    body,
		DelayDays:    delayDays,
		DelayHours:   delayHours,
	}
}

func callStep(script string, delayDays, delayHours int) models.SequenceStep {
	return models.SequenceStep{
		StepType:   models.StepTypeCall,
		CallScript: script,
		DelayDays:  delayDays,
		DelayHours: delayHours,
	}
}

func waitStep(delayDays, delayHours int) models.SequenceStep {
	return models.SequenceStep{
		StepType:   models.StepTypeWait,
		DelayDays:  delayDays,
		DelayHours: delayHours,
	}
}
