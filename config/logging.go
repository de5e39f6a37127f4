package config

import (
	"github.com/iidesho/auditflow/webserver/health"
	"github.com/iidesho/bragi"
	"github.com/iidesho/bragi/sbragi"
)

// SetupLogging sends logs to rotating files in dir. An empty dir keeps the
// default stderr logger.
func SetupLogging(dir string) error {
	if dir == "" {
		return nil
	}
	bragi.SetPrefix(health.Name)
	handler, err := sbragi.NewHandlerInFolder(dir)
	if err != nil {
		return err
	}
	handler.MakeDefault()
	logger, err := sbragi.NewLogger(&handler)
	if err != nil {
		return err
	}
	logger.SetDefault()
	return nil
}
