package slack_utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/schoolvax/vax-app/conf"
)

const (
	SuccessMsg = "SUCCESS"
	FailureMsg = "FAILURE"
)

// Notifier is satisfied by *slack.Client.
type Notifier interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// AlertsChannel is where failed jobs are reported.
func AlertsChannel() string {
	return conf.GetEnv("SLACK_ALERTS_CHANNEL")
}

// NewNotifier returns a slack client, or nil when no token is configured.
func NewNotifier() Notifier {
	token := conf.GetEnv("SLACK_TOKEN")
	if token == "" {
		return nil
	}
	return slack.New(token)
}

// SendSlackMessage posts msg to channel. A nil notifier or empty channel is a no-op.
// Failures are logged, never returned.
func SendSlackMessage(ctx context.Context, logger logrus.FieldLogger, n Notifier, channel string, msg string, status bool) {
	if n == nil || channel == "" {
		return
	}

	color := "danger"
	if status {
		color = "good"
	}

	a := slack.Attachment{
		Color: color,
		Text:  msg,
	}
	_, _, err := n.PostMessageContext(ctx, channel, slack.MsgOptionAttachments(a))
	if err != nil {
		logger.Errorf("Failed to send slack message: %+v", err)
	}
}
