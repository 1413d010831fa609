package utils

import (
	"io"

	"github.com/MrSnakeDoc/ec2-namer/internal/logger"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer, ex: a metadata response body.
func Close(c io.Closer) {
	_ = c.Close()
}

// CloseLogged closes c and logs a failure under name.
func CloseLogged(c io.Closer, log logger.Logger, name string) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", name), logger.Error(err))
		return
	}
	log.Debug("closed", logger.String("resource", name))
}
