package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crytic/spongediff/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI when a command runs. Each
// module/package should create its own sub-logger. This allows to create unique logging instances depending on the use case.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel and can handle specialized
// output to console as well
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// multiLogger describes a logger that will be used to output logs to any non-colorized channel(s) in either
	// structured or unstructured format.
	multiLogger zerolog.Logger

	// consoleLogger describes a logger that will be used to output colorized, unstructured output to console-like
	// writers. We are creating a separate logger for this so that we can support custom level formatting and coloring.
	consoleLogger zerolog.Logger

	// structuredWriters, unstructuredWriters, and unstructuredColorWriters hold the raw io.Writer objects added for
	// each output style. The raw writers are retained so that duplicates can be rejected and writers can be removed;
	// wrapping happens when the underlying zerolog loggers are rebuilt.
	structuredWriters        []io.Writer
	unstructuredWriters      []io.Writer
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The Logger has no writers attached to it until
// AddWriter is called, so a fresh logger discards everything it is given.
func NewLogger(level zerolog.Level) *Logger {
	// The two base loggers are effectively loggers that are disabled
	// We are creating instances of them so that we do not get nil pointer dereferences down the line
	return &Logger{
		level:                    level,
		multiLogger:              zerolog.New(os.Stdout).Level(zerolog.Disabled),
		consoleLogger:            zerolog.New(os.Stdout).Level(zerolog.Disabled),
		structuredWriters:        make([]io.Writer, 0),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subMultiLogger := l.multiLogger.With().Str(key, value).Logger()
	subConsoleLogger := l.consoleLogger.With().Str(key, value).Logger()
	return &Logger{
		level:                    l.level,
		multiLogger:              subMultiLogger,
		consoleLogger:            subConsoleLogger,
		structuredWriters:        l.structuredWriters,
		unstructuredWriters:      l.unstructuredWriters,
		unstructuredColorWriters: l.unstructuredColorWriters,
	}
}

// AddWriter will add a writer to the list of channels where log output will be sent. A colored writer receives
// unstructured output with the custom console formatting and ANSI coloring applied. A non-colored writer receives
// either structured JSON output or unstructured output with no coloring, depending on the requested format.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	// Identify which list this writer belongs to. Colored output only makes sense for unstructured logging.
	writers := l.writerList(format, colored)

	// Check to see if the writer is already tracked
	for _, w := range *writers {
		if writer == w {
			return
		}
	}

	// Add it to the list of writers and rebuild the underlying loggers
	*writers = append(*writers, writer)
	l.rebuildLoggers()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	// Identify which list this writer belongs to
	writers := l.writerList(format, colored)

	// Iterate through the writers and remove the requested one, if present
	for i, w := range *writers {
		if writer == w {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuildLoggers()
			return
		}
	}
}

// writerList returns a pointer to the writer list associated with the given format/color combination.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == UNSTRUCTURED {
		if colored {
			return &l.unstructuredColorWriters
		}
		return &l.unstructuredWriters
	}
	return &l.structuredWriters
}

// rebuildLoggers re-creates the underlying zerolog loggers from the current writer lists. Unstructured writers are
// wrapped in console writers (colorized or not) at this point.
func (l *Logger) rebuildLoggers() {
	// The multi logger combines the structured writers with the non-colorized unstructured ones
	multiWriters := make([]io.Writer, 0, len(l.structuredWriters)+len(l.unstructuredWriters))
	multiWriters = append(multiWriters, l.structuredWriters...)
	for _, w := range l.unstructuredWriters {
		multiWriters = append(multiWriters, zerolog.ConsoleWriter{Out: w, NoColor: true})
	}
	if len(multiWriters) > 0 {
		l.multiLogger = zerolog.New(zerolog.MultiLevelWriter(multiWriters...)).Level(l.level).With().Timestamp().Logger()
	} else {
		l.multiLogger = zerolog.New(os.Stdout).Level(zerolog.Disabled)
	}

	// The console logger receives the colorized unstructured writers with the custom formatting applied
	consoleWriters := make([]io.Writer, 0, len(l.unstructuredColorWriters))
	for _, w := range l.unstructuredColorWriters {
		consoleWriters = append(consoleWriters, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level))
	}
	if len(consoleWriters) > 0 {
		l.consoleLogger = zerolog.New(zerolog.MultiLevelWriter(consoleWriters...)).Level(l.level)
	} else {
		l.consoleLogger = zerolog.New(os.Stdout).Level(zerolog.Disabled)
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.multiLogger = l.multiLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Trace()
	multiLog := l.multiLogger.Trace()

	// Chain the error
	chainError(consoleLog, multiLog, err, l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Debug()
	multiLog := l.multiLogger.Debug()

	// Chain the error
	chainError(consoleLog, multiLog, err, l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Info()
	multiLog := l.multiLogger.Info()

	// Chain the error
	chainError(consoleLog, multiLog, err, l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Warn()
	multiLog := l.multiLogger.Warn()

	// Chain the error
	chainError(consoleLog, multiLog, err, l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Error()
	multiLog := l.multiLogger.Error()

	// Chain the error
	chainError(consoleLog, multiLog, err, l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// Panic is a wrapper function that will log a panic event
func (l *Logger) Panic(args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	consoleLog := l.consoleLogger.Panic()
	multiLog := l.multiLogger.Panic()

	// Chain the error
	chainError(consoleLog, multiLog, err, true)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	consoleOutput := make([]string, 0)
	fileOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The console string buffer will have the
			// current color context applied to it.
			consoleOutput = append(consoleOutput, colorCtx(t))
			fileOutput = append(fileOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(fileOutput, ""), err, info
}

// chainError is a helper function that takes in a *zerolog.Event for console and multi-log output and chains an error
// to both events. If debug is true, then a stack trace is added to both events as well.
func chainError(consoleLog *zerolog.Event, multiLog *zerolog.Event, err error, debug bool) {
	// First append the errors to each event. Note that even if err is nil, there will not be a panic here
	consoleLog.Err(err)
	multiLog.Err(err)

	// If we are in debug mode or below, then we will add the stack traces as well for debugging
	if debug {
		consoleLog.Stack()
		multiLog.Stack()
	}
}

// chainStructuredLogInfoAndMsgs is a helper function that takes in a *zerolog.Event for console and multi-log output,
// chains any StructuredLogInfo provided to it, adds the associated messages, and sends out the logs to their respective
// channels.
func chainStructuredLogInfoAndMsgs(consoleLog *zerolog.Event, multiLog *zerolog.Event, info StructuredLogInfo, consoleMsg string, multiMsg string) {
	// If we are provided a structured log info object, add that as a key-value pair to the events
	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// Append the messages to each event. This will also result in the log events being sent out to their respective
	// streams. Note that we are deferring the msg to multi logger in case we are logging a panic and want to make sure that
	// all channels receive the panic log
	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// setupDefaultFormatting will update the console logger's formatting to the spongediff standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		// Create a level object for better switch logic
		level, err := zerolog.ParseLevel(i.(string))
		if err != nil {
			panic(fmt.Sprintf("unable to parse the log level: %v", err))
		}

		// Switch on the level and return a custom, colored string
		switch level {
		case zerolog.TraceLevel:
			// Return a bold, cyan "trace" string
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			// Return a bold, blue "debug" string
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			// Return a bold, green left arrow
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			// Return a bold, yellow "warn" string
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			// Return a bold, red "err" string
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			// Return a bold, red "fatal" string
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			// Return a bold, red "panic" string
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return i.(string)
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
