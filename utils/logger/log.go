package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	root   *zap.SugaredLogger
	atom   zap.AtomicLevel

	initOnce sync.Once
)

func InitLogger() {
	initOnce.Do(func() {
		atom = zap.NewAtomicLevel()
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder

		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			atom,
		))
		root = logger.Sugar()
	})
}

func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func NewLogger(name string) *zap.SugaredLogger {
	InitLogger()
	return root.Named(name)
}

func SetDebug(enable bool) {
	InitLogger()
	if enable {
		atom.SetLevel(zap.DebugLevel)
		return
	}
	atom.SetLevel(zap.InfoLevel)
}
