package expr

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/FluxSim/engine/internal/logging"
)

// Settings holds the engine's tunables. It is passed explicitly to the
// factories that need it rather than living in package state, so two
// models with different smoothing can coexist in one process.
type Settings struct {
	// MinSmoothing is the smoothing coefficient k for minimum(). Zero
	// or negative selects the exact (non-smooth) variant.
	MinSmoothing float64 `envconfig:"MIN_SMOOTHING" default:"0"`

	// MaxSmoothing is the smoothing coefficient k for maximum(). Zero
	// or negative selects the exact variant.
	MaxSmoothing float64 `envconfig:"MAX_SMOOTHING" default:"0"`

	// SourceDomain is the single domain the Source factory accepts
	// operands in.
	SourceDomain string `envconfig:"SOURCE_DOMAIN" default:"current collector"`
}

// DefaultSettings returns exact min/max and the default source domain.
func DefaultSettings() Settings {
	return Settings{SourceDomain: "current collector"}
}

// LoadSettings reads settings from ENGINE_* environment variables.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("engine", &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (s Settings) minExact() bool { return s.MinSmoothing <= 0 }
func (s Settings) maxExact() bool { return s.MaxSmoothing <= 0 }

// log is the package logger, a no-op unless the host installs one. Only
// debug-level traces are emitted (implicit broadcasts, factory
// short-circuits); the engine never logs on the evaluation path.
var log = logging.NewNop()

// SetLogger installs a logger for the package's debug traces.
func SetLogger(l *logging.Logger) {
	if l == nil {
		l = logging.NewNop()
	}
	log = l
}
