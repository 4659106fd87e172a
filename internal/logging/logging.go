package logging

import (
	"bytes"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the stage logger. Every line carries the stage name and the
// order identifier so a single task run can be followed across stages.
func New(stage, order string, debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	return logger.With(zap.String("stage", stage), zap.String("order", order))
}

// DocumentLog tees log output into a buffer so the per-document history can
// be stored on the document record after processing.
type DocumentLog struct {
	*zap.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// ForDocument wraps base with a second core that captures everything logged
// through the returned logger.
func ForDocument(base *zap.Logger) *DocumentLog {
	doc := &DocumentLog{}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
	capture := zapcore.NewCore(enc, zapcore.AddSync(&lockedWriter{doc: doc}), zap.InfoLevel)

	doc.Logger = base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, capture)
	}))

	return doc
}

// Text returns everything captured so far.
func (d *DocumentLog) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.String()
}

type lockedWriter struct {
	doc *DocumentLog
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.doc.mu.Lock()
	defer w.doc.mu.Unlock()
	return w.doc.buf.Write(p)
}
