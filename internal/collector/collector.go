package collector

import (
	"context"

	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/model"
)

type CollectedData struct {
	TargetID    string
	TargetName  string
	TargetGroup string
	Readings    []model.Reading
}

type Collector interface {
	Collect(ctx context.Context, target *config.TargetConfig) (*CollectedData, error)
	Name() string
	Close() error
}
