package gpu

import (
	"go.uber.org/zap"
)

// candidateBackends lists device backends in preference order. Only host
// memory is supported in this build, so the Manager always lands on its CPU
// fallback.
func candidateBackends(logger *zap.Logger) []Backend {
	logger.Info("Using CPU backend (compiled without device backends)")
	return nil
}
