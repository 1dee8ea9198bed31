package telegram

import (
	"context"
	"sync"
	"time"

	"fingram/internal/log"
	"fingram/internal/storage"
)

type Mode int

const (
	ModeUnresolved Mode = iota
	ModeEmbedded
	ModeStandalone
)

func (m Mode) String() string {
	switch m {
	case ModeEmbedded:
		return "embedded"
	case ModeStandalone:
		return "standalone"
	default:
		return "unresolved"
	}
}

// Environment is the terminal result of detection.
type Environment struct {
	Mode   Mode
	Init   InitData
	Theme  Theme
	Dark   bool
	Secure storage.HostSecureStorage
}

func (e Environment) Embedded() bool { return e.Mode == ModeEmbedded }

// Loader asynchronously bootstraps the host bridge (the bootstrap-script
// analogue). It must return either a bridge or an error.
type Loader func(ctx context.Context) (Bridge, error)

// Detector resolves the environment exactly once. Any exception while
// reading bridge fields resolves standalone; detection never propagates a
// failure and never reports an error to the user.
type Detector struct {
	bridge  Bridge
	loader  Loader
	timeout time.Duration
	logger  *log.Logger

	mu  sync.Mutex
	env *Environment
}

// NewDetector builds a detector. bridge is the bridging object if one is
// already present on startup; loader is consulted otherwise and may be nil.
func NewDetector(bridge Bridge, loader Loader, timeout time.Duration, logger *log.Logger) *Detector {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Detector{bridge: bridge, loader: loader, timeout: timeout, logger: logger.WithComponent("detector")}
}

// Resolve returns the environment, performing detection on the first call.
// Subsequent calls return the same result.
func (d *Detector) Resolve(ctx context.Context) Environment {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.env != nil {
		return *d.env
	}

	env := d.detect(ctx)
	d.env = &env
	d.logger.Info("environment resolved", "mode", env.Mode.String(), "dark", env.Dark)
	return env
}

func (d *Detector) detect(ctx context.Context) Environment {
	if d.bridge != nil {
		if env, ok := d.adopt(d.bridge); ok {
			return env
		}
		// Host script present but no real session behind it.
		return Environment{Mode: ModeStandalone}
	}

	if d.loader == nil {
		return Environment{Mode: ModeStandalone}
	}

	type loaded struct {
		bridge Bridge
		err    error
	}
	ch := make(chan loaded, 1)
	loadCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	go func() {
		b, err := d.loader(loadCtx)
		ch <- loaded{bridge: b, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil || res.bridge == nil {
			d.logger.Debug("bridge loader failed", "error", res.err)
			return Environment{Mode: ModeStandalone}
		}
		if env, ok := d.adopt(res.bridge); ok {
			return env
		}
		return Environment{Mode: ModeStandalone}
	case <-loadCtx.Done():
		d.logger.Debug("bridge loader timed out")
		return Environment{Mode: ModeStandalone}
	}
}

// adopt validates the bridge payload and builds the embedded environment.
// Recovers from any panic inside the bridge.
func (d *Detector) adopt(b Bridge) (env Environment, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("bridge access failed, treating as standalone", "panic", r)
			env = Environment{Mode: ModeStandalone}
			ok = false
		}
	}()

	init := b.InitData()
	if !plausible(init) {
		return Environment{Mode: ModeStandalone}, false
	}

	b.Ready()
	return Environment{
		Mode:   ModeEmbedded,
		Init:   init,
		Theme:  NewTheme(b.ThemeParams()),
		Dark:   b.ColorScheme() == "dark",
		Secure: b.SecureStorage(),
	}, true
}
