package services

import (
	"fmt"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioNotifier sends ops alerts as SMS via Twilio.
type TwilioNotifier struct {
	client     *twilio.RestClient
	fromNumber string
	opsPhone   string
}

// NewTwilioNotifier creates a Twilio-backed notifier
func NewTwilioNotifier(accountSID, authToken, fromNumber, opsPhone string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioNotifier{
		client:     client,
		fromNumber: fromNumber,
		opsPhone:   opsPhone,
	}
}

func (n *TwilioNotifier) DatasetReady(dataset *models.Dataset) error {
	return n.send(datasetReadyMessage(dataset))
}

func (n *TwilioNotifier) DatasetFailed(filename, reason string) error {
	return n.send(datasetFailedMessage(filename, reason))
}

func (n *TwilioNotifier) BonusComputed(run *models.BonusRun) error {
	return n.send(bonusComputedMessage(run))
}

func (n *TwilioNotifier) send(message string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(n.opsPhone)
	params.SetFrom(n.fromNumber)
	params.SetBody(message)

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS via Twilio: %w", err)
	}

	if resp.Sid != nil {
		logrus.WithField("message_sid", *resp.Sid).Debug("Ops SMS sent")
	}
	return nil
}
