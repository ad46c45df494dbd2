package logger

import (
	"os"

	"go.uber.org/zap"
)

// New builds the service logger. LOG_MODE=dev switches to the human-readable
// development encoder.
func New() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
