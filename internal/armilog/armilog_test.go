package armilog_test

import (
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/internal/armilog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) (*armilog.Logger, *[]string) {
	t.Helper()
	var lines []string
	writer := logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
		lines = append(lines, string(e.Bytes()))
		return nil
	})
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField("")),
		stumpy.L.WithWriter(writer),
	)
	return logger, &lines
}

func TestThrottle_allowsUnderLimit(t *testing.T) {
	th := armilog.NewThrottle(map[time.Duration]int{time.Minute: 2})

	assert.True(t, th.Allow(errs.TimedOut))
	assert.True(t, th.Allow(errs.TimedOut))
	assert.False(t, th.Allow(errs.TimedOut))
}

func TestThrottle_categoriesAreIndependent(t *testing.T) {
	th := armilog.NewThrottle(map[time.Duration]int{time.Minute: 1})

	assert.True(t, th.Allow(errs.TimedOut))
	assert.True(t, th.Allow(errs.ContextClosed))
}

func TestThrottle_logReplyHandlerPanicRespectsLimit(t *testing.T) {
	logger, lines := captureLogger(t)
	th := armilog.NewThrottle(map[time.Duration]int{time.Minute: 1})

	th.LogReplyHandlerPanic(logger, "request_id", 1, "boom")
	th.LogReplyHandlerPanic(logger, "request_id", 2, "boom again")

	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], "reply handler panicked")
}

func TestThrottle_logChannelDisconnectAlwaysLogs(t *testing.T) {
	logger, lines := captureLogger(t)
	th := armilog.NewThrottle(armilog.DefaultRates)

	th.LogChannelDisconnect(logger, 1, 5, nil)
	th.LogChannelDisconnect(logger, 1, 3, nil)

	assert.Len(t, *lines, 2)
}
