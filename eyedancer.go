package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"lautenbacher.net/eyedancer/config"
	"lautenbacher.net/eyedancer/console"
	"lautenbacher.net/eyedancer/controller"
	"lautenbacher.net/eyedancer/logging"
	"lautenbacher.net/eyedancer/platform"
	"lautenbacher.net/eyedancer/router"
	"lautenbacher.net/eyedancer/server"
	"lautenbacher.net/eyedancer/store"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	readyTimeout    = 10 * time.Second
	shutdownTimeout = 3 * time.Second
)

// App is one run of the eye dancer with one configuration. A reload tears
// the App down and builds a new one.
type App struct {
	cfile    string
	simulate bool
	conf     config.Config
	ossignal chan os.Signal

	platform platform.Platform
	store    *store.Store
	ctrl     atomic.Pointer[controller.Controller]
	server   *server.Server
	bootID   string

	cancel    context.CancelFunc
	ctrlDone  chan struct{}
	wg        sync.WaitGroup
	watchStop chan struct{}
}

// run keeps the eye dancer going until SIGINT or SIGTERM. SIGHUP (a
// changed config file, or "r" in the simulation) restarts it with the
// config reread.
func run(cfile string, simulate bool) error {
	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(ossignal)

	for {
		app, err := newApp(cfile, simulate, ossignal)
		if err != nil {
			return err
		}
		if err := app.start(); err != nil {
			app.stop()
			return err
		}
		sig := <-ossignal
		slog.Info("Received signal", "signal", sig.String())
		app.stop()
		if sig != syscall.SIGHUP {
			return nil
		}
	}
}

func newApp(cfile string, simulate bool, ossignal chan os.Signal) (*App, error) {
	conf, err := config.ReadConfig(cfile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logConf := conf.Logging.HW
	if simulate {
		logConf = conf.Logging.TUI
	}
	if err := logging.Init(logging.Options{
		Level:  logConf.Level,
		Format: logConf.Format,
		File:   logConf.File,
		Buffer: simulate,
	}); err != nil {
		return nil, err
	}
	return &App{
		cfile:     cfile,
		simulate:  simulate,
		conf:      conf,
		ossignal:  ossignal,
		ctrlDone:  make(chan struct{}),
		watchStop: make(chan struct{}),
	}, nil
}

func (a *App) start() error {
	slog.Info("Starting eye dancer", "version", version, "config", a.cfile, "simulate", a.simulate)

	if a.simulate {
		a.platform = platform.NewTUIPlatform(a.ossignal, a.setTarget, a.conf.Actuator.RelayOnWhenClosed)
	} else {
		a.platform = platform.NewRaspberryPiPlatform(&a.conf)
	}
	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("start platform: %w", err)
	}
	select {
	case <-a.platform.Ready():
	case <-time.After(readyTimeout):
		return fmt.Errorf("platform not ready after %s", readyTimeout)
	}

	st, err := store.Open(a.conf.Store.Dir)
	if err != nil {
		return err
	}
	a.store = st
	if seeded, err := st.SeedLetterMapping(a.conf.Spelling.Mapping); err != nil {
		return err
	} else if !seeded {
		slog.Info("Using stored letter mapping", "mapping", st.LetterMapping())
	}
	if err := st.SetMotorSpeed(uint8(a.conf.Motor.Speed)); err != nil {
		return err
	}
	if a.bootID, err = st.RecordBoot(version); err != nil {
		return err
	}

	ctrl := controller.New(a.platform, st, nil, controller.OptionsFromConfig(a.conf))
	a.ctrl.Store(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		defer close(a.ctrlDone)
		ctrl.Run(ctx)
	}()

	commands := router.New(ctrl, ctrl)
	a.server = server.New(ctrl, commands, a.platform, st, a.cfile)
	if err := a.server.Start(a.conf.HTTP.Listen); err != nil {
		return err
	}

	if a.conf.Serial.Enabled {
		con, err := console.Open(a.conf.Serial.Port, a.conf.Serial.Baud, commands)
		if err != nil {
			// the HTTP transport still works
			slog.Error("Serial console disabled", "error", err)
		} else {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				if err := con.Run(ctx); err != nil {
					slog.Error("Serial console stopped", "error", err)
				}
			}()
		}
	}

	if err := config.Watch(a.cfile, a.reload, a.watchStop); err != nil {
		slog.Warn("Config file not watched", "error", err)
	}
	return nil
}

// stop shuts everything down in reverse order. The controller goes
// first, so the curtain motor is stopped before anything else.
func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.ctrlDone
	}
	close(a.watchStop)
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown", "error", err)
		}
		cancel()
	}
	a.wg.Wait()
	if a.store != nil {
		if a.bootID != "" {
			if err := a.store.RecordShutdown(a.bootID); err != nil {
				slog.Error("Failed to journal shutdown", "error", err)
			}
		}
		if err := a.store.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}
	if a.platform != nil {
		a.platform.Stop()
	}
	slog.Info("Eye dancer stopped")
	if err := logging.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing log:", err)
	}
}

// reload asks run for a restart, unless a signal is already queued.
func (a *App) reload() {
	slog.Info("Config file changed, reloading")
	select {
	case a.ossignal <- syscall.SIGHUP:
	default:
	}
}

func (a *App) setTarget(deg int) {
	if ctrl := a.ctrl.Load(); ctrl != nil {
		ctrl.SetTarget(deg)
	}
}

// Local Variables:
// compile-command: "go build"
// End:
