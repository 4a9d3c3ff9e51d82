package worker

import (
	"context"
	"time"

	"salescadence/engine"
	"salescadence/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SequenceWorker runs the sequence sweep on a fixed interval. It is meant to
// run as a single instance; concurrent sweeps over the same owner are not
// serialized beyond the engine's conditional cursor updates.
type SequenceWorker struct {
	DB       *gorm.DB
	Engine   *engine.Engine
	Logger   *logrus.Logger
	Interval time.Duration
}

func NewSequenceWorker(db *gorm.DB, eng *engine.Engine, logger *logrus.Logger, interval time.Duration) *SequenceWorker {
	return &SequenceWorker{
		DB:       db,
		Engine:   eng,
		Logger:   logger,
		Interval: interval,
	}
}

func (sw *SequenceWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	sw.Logger.Info("Sequence worker started")

	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Info("Sequence worker shutting down...")
			return
		case <-ticker.C:
			sw.runDueSweeps()
		}
	}
}

func (sw *SequenceWorker) runDueSweeps() {
	userIDs, err := sw.dueOwners()
	if err != nil {
		sw.Logger.WithError(err).Error("Error finding owners with due enrollments")
		return
	}

	for _, userID := range userIDs {
		result, err := sw.Engine.RunSweep(userID)
		if err != nil {
			sw.Logger.WithError(err).WithField("user_id", userID).Error("Sweep failed")
			continue
		}
		if result.Failed > 0 {
			sw.Logger.WithFields(logrus.Fields{
				"user_id": userID,
				"failed":  result.Failed,
			}).Warn("Sweep terminalized enrollments")
		}
	}
}

// dueOwners lists the users who have at least one due enrollment in an
// active sequence, so quiet accounts cost nothing per tick.
func (sw *SequenceWorker) dueOwners() ([]uint, error) {
	var userIDs []uint
	err := sw.DB.Model(&models.SequenceEnrollment{}).
		Joins("JOIN sequences ON sequences.id = sequence_enrollments.sequence_id").
		Where("sequence_enrollments.status = ? AND sequence_enrollments.next_action_at <= ?",
			models.EnrollmentStatusActive, time.Now()).
		Where("sequences.status = ?", models.SequenceStatusActive).
		Distinct().
		Pluck("sequences.user_id", &userIDs).Error
	return userIDs, err
}
