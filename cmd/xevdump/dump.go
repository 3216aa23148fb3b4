// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xevloop.org/app"
	"xevloop.org/internal/config"
	applog "xevloop.org/internal/log"
	"xevloop.org/io/device"
	"xevloop.org/io/event"
	"xevloop.org/io/system"
)

// pollInterval paces the polling mode at about 60 passes a second.
const pollInterval = 16 * time.Millisecond

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := applog.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	loop, err := app.NewEventsLoop(
		app.Display(cfg.Display),
		app.Logger(logger),
		app.TextBufferSize(cfg.TextBufferSize),
		app.XInputVersion(cfg.XInput.Major, cfg.XInput.Minor),
		app.ErrorHandler(func(err error) {
			logger.Error("dispatch", "err", err)
		}),
	)
	if err != nil {
		return err
	}
	defer loop.Close()

	w, err := loop.NewWindow(
		app.Title(cfg.Window.Title),
		app.Size(cfg.Window.Width, cfg.Window.Height),
		app.Multitouch(cfg.Window.Multitouch),
	)
	if err != nil {
		return err
	}
	defer w.Close()
	for _, d := range loop.Devices() {
		logger.Info("device", "id", d.ID, "name", d.Name, "scroll_axes", len(d.ScrollAxes))
	}

	d := &dumper{out: cmd.OutOrStdout(), raw: cfg.RawEvents, window: w.ID()}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	proxy := loop.Proxy()
	go func() {
		<-sigs
		d.interrupted.Store(true)
		if err := proxy.Wakeup(); err != nil {
			logger.Debug("wakeup", "err", err)
		}
	}()

	if flags.block {
		return loop.Run(func(e event.Event) app.ControlFlow {
			if d.handle(e) {
				return app.Stop
			}
			return app.Continue
		})
	}
	for {
		done := false
		err := loop.Poll(func(e event.Event) {
			done = d.handle(e) || done
		})
		if err != nil {
			return err
		}
		if done || d.interrupted.Load() {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

// loadConfig reads the configuration file and applies the flags set on
// the command line over it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flags.config != "" {
		var err error
		if cfg, err = config.Load(flags.config); err != nil {
			return nil, err
		}
	}
	fs := cmd.Flags()
	if fs.Changed("display") {
		cfg.Display = flags.display
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if fs.Changed("raw") {
		cfg.RawEvents = flags.raw
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type dumper struct {
	out         io.Writer
	raw         bool
	window      event.WindowID
	interrupted atomic.Bool
}

// handle prints e and reports whether dumping should stop.
func (d *dumper) handle(e event.Event) bool {
	switch e := e.(type) {
	case system.WakeupEvent:
		if d.interrupted.Load() {
			return true
		}
	case system.CloseEvent:
		fmt.Fprintln(d.out, format(e))
		return e.Window == d.window
	}
	if !d.raw && isDeviceEvent(e) {
		return false
	}
	fmt.Fprintln(d.out, format(e))
	return false
}

func isDeviceEvent(e event.Event) bool {
	switch e.(type) {
	case device.ButtonEvent, device.MotionEvent, device.KeyEvent:
		return true
	default:
		return false
	}
}

// format renders e as its type name followed by its fields.
func format(e event.Event) string {
	return fmt.Sprintf("%T %+v", e, e)
}
