package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock reads so replay windows and receipt times can be
// pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns a Clock backed by time.Now in UTC.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(System),
)
