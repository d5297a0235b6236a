package services

import (
	"fmt"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/pkg/config"
	"github.com/sirupsen/logrus"
)

// Notifier pushes operational alerts about dataset processing and bonus
// runs to the ops team.
type Notifier interface {
	DatasetReady(dataset *models.Dataset) error
	DatasetFailed(filename, reason string) error
	BonusComputed(run *models.BonusRun) error
}

// NewNotifier selects the notifier implementation from configuration.
// Anything but a fully configured "twilio" falls back to the mock.
func NewNotifier(cfg *config.Config) Notifier {
	switch cfg.NotifyProvider {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" || cfg.OpsPhone == "" {
			logrus.Warn("Twilio notifier selected but not fully configured, using mock notifier")
			return NewMockNotifier()
		}
		return NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.OpsPhone)
	case "mock":
		return NewMockNotifier()
	default:
		logrus.Warnf("Unknown notify provider %q, using mock notifier", cfg.NotifyProvider)
		return NewMockNotifier()
	}
}

// MockNotifier logs alerts instead of sending them. Default in development
// and tests.
type MockNotifier struct{}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (n *MockNotifier) DatasetReady(dataset *models.Dataset) error {
	logrus.Infof("MOCK NOTIFY: dataset %s ready (%d rows, %d players)",
		dataset.Filename, dataset.RowCount, dataset.PlayerCount)
	return nil
}

func (n *MockNotifier) DatasetFailed(filename, reason string) error {
	logrus.Infof("MOCK NOTIFY: dataset %s failed: %s", filename, reason)
	return nil
}

func (n *MockNotifier) BonusComputed(run *models.BonusRun) error {
	logrus.Infof("MOCK NOTIFY: bonus run %s allocated %.2f to %d players (%s)",
		run.PublicID, run.TotalAllocated, run.PlayerCount, run.Method)
	return nil
}

func datasetReadyMessage(dataset *models.Dataset) string {
	return fmt.Sprintf("Loyalty dashboard: dataset %s is ready with %d rows from %d players.",
		dataset.Filename, dataset.RowCount, dataset.PlayerCount)
}

func datasetFailedMessage(filename, reason string) string {
	return fmt.Sprintf("Loyalty dashboard: dataset %s failed to process: %s", filename, reason)
}

func bonusComputedMessage(run *models.BonusRun) string {
	return fmt.Sprintf("Loyalty dashboard: %s bonus run distributed %.2f of %.2f across %d players.",
		run.Method, run.TotalAllocated, run.Pool, run.PlayerCount)
}
