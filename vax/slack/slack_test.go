package slack_utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"

	"github.com/schoolvax/vax-app/conf"
)

func TestSendSlackMessageFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer mockServer.Close()
	client := slack.New("YOUR_TEST_TOKEN", slack.OptionAPIURL(mockServer.URL+"/foo/"))

	SendSlackMessage(context.Background(), logger, client, "555", "foo bar", false)
	assert.Equal(t, 1, len(hook.Entries))
	assert.Contains(t, hook.Entries[0].Message, "Failed to send slack message")
}

func TestSendSlackMessageSuccess(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var path string
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "channel": "555", "ts": "1700000000.000100"}`))
	}))
	defer mockServer.Close()
	client := slack.New("YOUR_TEST_TOKEN", slack.OptionAPIURL(mockServer.URL+"/"))

	SendSlackMessage(context.Background(), logger, client, "555", "synchronized", true)
	assert.Empty(t, hook.Entries)
	assert.Equal(t, "/chat.postMessage", path)
}

func TestSendSlackMessageNoNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	SendSlackMessage(context.Background(), logger, nil, "555", "ignored", false)
	assert.Empty(t, hook.Entries)
}

func TestNewNotifier(t *testing.T) {
	orig := conf.GetEnv("SLACK_TOKEN")
	t.Cleanup(func() { _ = conf.SetEnv(t, "SLACK_TOKEN", orig) })

	assert.NoError(t, conf.UnsetEnv(t, "SLACK_TOKEN"))
	assert.Nil(t, NewNotifier())

	assert.NoError(t, conf.SetEnv(t, "SLACK_TOKEN", "xoxb-test"))
	assert.NotNil(t, NewNotifier())
}
