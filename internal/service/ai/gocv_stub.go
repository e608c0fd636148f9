//go:build !gocv

package ai

import (
	"errors"

	"detectserver/internal/config"
	"detectserver/internal/logger"
)

func loadGocvModel(config.ModelConfig, map[int]string, *logger.Logger) (Model, error) {
	return nil, errors.New("gocv backend not compiled in, rebuild with -tags gocv")
}
