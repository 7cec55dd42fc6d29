package epub

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adammathes/epubnorm/pkg/archive"
)

// JournalTimeLayout is the timestamp layout of journal lines.
const JournalTimeLayout = "02/01/06 15:04:05"

// journalWriter appends log lines to a file inside the archive.
type journalWriter struct {
	st   archive.Storage
	name string
}

func (w journalWriter) Write(p []byte) (int, error) {
	if err := w.st.Append(w.name, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func newJournalCore(st archive.Storage, name string) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(JournalTimeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: ":: ",
	})
	return zapcore.NewCore(enc, zapcore.AddSync(journalWriter{st: st, name: name}), zapcore.InfoLevel)
}

// teeJournal returns a logger writing to both l and the archive journal.
func teeJournal(l *zap.Logger, st archive.Storage, name string) *zap.Logger {
	return zap.New(zapcore.NewTee(l.Core(), newJournalCore(st, name)))
}
