package utils

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerInstance *zap.SugaredLogger
	loggerOnce     sync.Once
)

// NewLogger builds the process-wide sugared logger. Repeat calls return the
// same instance.
func NewLogger(development bool) (*zap.SugaredLogger, error) {
	var err error
	loggerOnce.Do(func() {
		var l *zap.Logger
		if development {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}
		if err != nil {
			return
		}
		loggerInstance = l.Sugar()
	})
	return loggerInstance, err
}
