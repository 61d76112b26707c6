package logsink

import (
	"fmt"
	"os"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// recordEncoder renders each log entry exactly as spec §6 requires:
//
//	[<ISO local timestamp>] [PID:<pid>] [TID:<thread-id>] <message>\n
//
// Structured fields passed to the logger are accepted (so call sites can
// still use zap.String/zap.Error for their own bookkeeping) but are not
// part of the wire record — the proxy's log file is a fixed line shape,
// not a JSON or console log stream. This embeds zapcore.ObjectEncoder by
// delegating to zapcore.NewMapObjectEncoder() so the concrete type
// satisfies the full zapcore.Encoder interface without reimplementing
// every Add* method; EncodeEntry below is the only method that matters.
type recordEncoder struct {
	zapcore.ObjectEncoder
	pid int
}

func newRecordEncoder() *recordEncoder {
	return &recordEncoder{
		ObjectEncoder: zapcore.NewMapObjectEncoder(),
		pid:           os.Getpid(),
	}
}

// Clone returns an independent copy, as zapcore.Encoder requires.
func (e *recordEncoder) Clone() zapcore.Encoder {
	return &recordEncoder{
		ObjectEncoder: zapcore.NewMapObjectEncoder(),
		pid:           e.pid,
	}
}

// EncodeEntry ignores ent.Level, ent.LoggerName, and ent.Caller — the
// proxy's log format carries none of them — and renders the fixed
// bracketed record shape followed by a newline.
func (e *recordEncoder) EncodeEntry(ent zapcore.Entry, _ []zapcore.Field) (*buffer.Buffer, error) {
	buf := buffer.NewPool().Get()
	buf.AppendString(fmt.Sprintf("[%s] [PID:%d] [TID:%s] %s\n",
		ent.Time.Local().Format("2006-01-02T15:04:05.000Z07:00"),
		e.pid,
		threadID(),
		ent.Message,
	))
	return buf, nil
}

var _ zapcore.Encoder = (*recordEncoder)(nil)
