package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// zapLevel у zap нет TRACE, он сводится к DEBUG
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE, DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel преобразует строку конфигурации в LogLevel
func ParseLevel(s string) LogLevel {
	switch s {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// FileConfig настройки ротации файла логов
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig возвращает настройки ротации по умолчанию
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Options параметры инициализации
type Options struct {
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	Console      bool
	File         FileConfig
}

// sinks общие для всех компонентных логгеров приёмники
type sinks struct {
	console zapcore.WriteSyncer
	file    *lumberjack.Logger
}

// Logger логгер компонента
type Logger struct {
	component    string
	sugar        *zap.SugaredLogger
	base         *zap.Logger
	consoleLevel zap.AtomicLevel
	fileLevel    zap.AtomicLevel
	sinks        *sinks
	owner        bool // владеет файлом и закрывает его
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = newNopLogger()
)

func newNopLogger() *Logger {
	return &Logger{
		sugar:        zap.NewNop().Sugar(),
		base:         zap.NewNop(),
		consoleLevel: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		fileLevel:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
		sinks:        &sinks{},
	}
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})
}

func fileEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})
}

// build собирает логгер компонента поверх общих приёмников
func build(component string, s *sinks, consoleLevel, fileLevel LogLevel) *Logger {
	l := &Logger{
		component:    component,
		consoleLevel: zap.NewAtomicLevelAt(consoleLevel.zapLevel()),
		fileLevel:    zap.NewAtomicLevelAt(fileLevel.zapLevel()),
		sinks:        s,
	}

	var cores []zapcore.Core
	if s.console != nil {
		cores = append(cores, zapcore.NewCore(consoleEncoder(), s.console, l.consoleLevel))
	}
	if s.file != nil {
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(s.file), l.fileLevel))
	}

	base := zap.New(zapcore.NewTee(cores...))
	if component != "" {
		base = base.Named(component)
	}
	l.base = base
	l.sugar = base.Sugar()
	return l
}

// Init инициализирует логгер по умолчанию
func Init(opts Options) error {
	s := &sinks{}
	if opts.Console {
		s.console = zapcore.Lock(os.Stdout)
	}
	if opts.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File.Path), 0755); err != nil {
			return fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		s.file = &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}
	}

	l := build("", s, opts.ConsoleLevel, opts.FileLevel)
	l.owner = true

	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()

	if prev != nil && prev.owner {
		_ = prev.Close()
	}
	return nil
}

// InitDefaultLogger инициализирует логгер с консолью и файлом logs/<component>.log
func InitDefaultLogger(component string) error {
	return Init(Options{
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
		Console:      true,
		File:         DefaultFileConfig(filepath.Join("logs", component+".log")),
	})
}

// CloseDefaultLogger сбрасывает буферы и закрывает файл логов
func CloseDefaultLogger() {
	defaultMu.Lock()
	l := defaultLogger
	defaultLogger = newNopLogger()
	defaultMu.Unlock()

	_ = l.Close()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// NewLogger создаёт логгер компонента поверх приёмников логгера по умолчанию
func NewLogger(component string) (*Logger, error) {
	if component == "" {
		return nil, fmt.Errorf("пустое имя компонента")
	}
	d := current()
	return build(component, d.sinks, levelFromZap(d.consoleLevel.Level()), levelFromZap(d.fileLevel.Level())), nil
}

func levelFromZap(l zapcore.Level) LogLevel {
	switch l {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ERROR
	default:
		return INFO
	}
}

// SetLevels меняет уровни консоли и файла
func (l *Logger) SetLevels(consoleLevel, fileLevel LogLevel) {
	l.consoleLevel.SetLevel(consoleLevel.zapLevel())
	l.fileLevel.SetLevel(fileLevel.zapLevel())
}

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

// Zap возвращает нижележащий *zap.Logger
func (l *Logger) Zap() *zap.Logger { return l.base }

// Sync сбрасывает буферы
func (l *Logger) Sync() error {
	err := l.base.Sync()
	// stdout на некоторых платформах не поддерживает fsync
	if l.sinks.console != nil {
		return nil
	}
	return err
}

// Close сбрасывает буферы и закрывает файл, если логгер им владеет
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.owner && l.sinks.file != nil {
		return l.sinks.file.Close()
	}
	return nil
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.sugar.Debugf("[TRACE] "+format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }
