package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct{ msgs []string }

func (r *recorder) Send(msg string)                  { r.msgs = append(r.msgs, msg) }
func (r *recorder) Sendf(format string, args ...any) { r.Send(fmt.Sprintf(format, args...)) }

func TestThrottled_PerKeyInterval(t *testing.T) {
	rec := &recorder{}
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	th := NewThrottled(rec, time.Minute)
	th.now = func() time.Time { return now }

	assert.True(t, th.Alert("halt", "first"))
	assert.False(t, th.Alert("halt", "again"))
	assert.True(t, th.Alert("fill", "fill A"), "other keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, th.Alert("halt", "later"))

	th.Send("plain")
	assert.Equal(t, []string{"first", "fill A", "later", "plain"}, rec.msgs)
}

func TestTelegram_NilSafe(t *testing.T) {
	var tg *Telegram
	assert.NotPanics(t, func() {
		tg.Send("x")
		tg.Stop()
	})
}
