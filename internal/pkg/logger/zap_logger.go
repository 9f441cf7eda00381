package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

type Options struct {
	FilePath   string
	Production bool
	// Level is a zap level name ("debug", "info", ...). Empty picks debug in
	// development and info in production.
	Level string
}

type ZapLogger struct {
	logger *zap.Logger
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// fileCore writes JSON lines to a rotated file. Rotation: 10MB x 5, 30 days, gzip.
func fileCore(path string, level zapcore.LevelEnabler) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(rotator), level)
}

func resolveLevel(opts Options) zapcore.Level {
	if opts.Level != "" {
		if lvl, err := zapcore.ParseLevel(opts.Level); err == nil {
			return lvl
		}
	}
	if opts.Production {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// NewZapLogger logs to the rotated file and to stdout; the console uses the
// human encoder outside production.
func NewZapLogger(opts Options) *ZapLogger {
	level := resolveLevel(opts)

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if opts.Production {
		consoleEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}

	core := zapcore.NewTee(
		fileCore(opts.FilePath, level),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	)
	return &ZapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

// NewIsolatedLogger writes to the file only. The ask CLI uses it so log lines
// do not interleave with the streamed answer.
func NewIsolatedLogger(path string) *ZapLogger {
	return &ZapLogger{logger: zap.New(fileCore(path, zapcore.InfoLevel), zap.AddCaller(), zap.AddCallerSkip(1))}
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func fields(module string, details map[string]interface{}) []zap.Field {
	if details == nil {
		details = map[string]interface{}{}
	}
	fs := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if err, ok := details["error"].(error); ok {
		fs = append(fs, zap.Error(err))
	}
	return fs
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.logger.Debug(message, fields(module, details)...)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.logger.Info(message, fields(module, details)...)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.logger.Warn(message, fields(module, details)...)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.logger.Error(message, fields(module, details)...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
