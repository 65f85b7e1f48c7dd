package logger

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const componentField = "component"

// fielder is implemented by errors that describe themselves as log fields,
// such as models.ValidationError.
type fielder interface {
	Fields() map[string]interface{}
}

// ZerologAdapter implements Logger on zerolog. Every entry carries the
// component that emitted it.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// New builds a zerolog-backed Logger. Unknown levels fall back to info.
// Console output puts the component right after the level.
func New(opts Options) *ZerologAdapter {
	var writer io.Writer = opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	if !opts.JSON {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: "15:04:05",
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				componentField,
				zerolog.MessageFieldName,
			},
			FieldsExclude: []string{componentField},
		}
	}

	return &ZerologAdapter{
		logger: zerolog.New(writer).Level(ParseLevel(opts.Level)).With().Timestamp().Logger(),
	}
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	entry(z.logger.Debug(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	entry(z.logger.Info(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	entry(z.logger.Warn(), component, fields).Msg(message)
}

// Error logs err with its own fields, if it has any, under the caller's.
func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	event := z.logger.Error().Err(err)

	var f fielder
	if errors.As(err, &f) {
		event = event.Fields(f.Fields())
	}

	entry(event, component, fields).Msg(component + " failed")
}

// Level reports the minimum level this adapter emits.
func (z *ZerologAdapter) Level() zerolog.Level {
	return z.logger.GetLevel()
}

func entry(event *zerolog.Event, component string, fields map[string]interface{}) *zerolog.Event {
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	return event.Str(componentField, component)
}
