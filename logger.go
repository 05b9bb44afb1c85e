package bloglist

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger suited to env. Test runs get a no-op logger.
func NewLogger(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "test":
		return zap.NewNop(), nil
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
