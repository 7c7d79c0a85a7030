// Package scripting runs user Starlark scripts that watch the arena. Scripts
// see copies of robot state and cannot change the simulation.
package scripting

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/pthm-cable/arena/game"
)

// maxSteps bounds the work of one observe call.
const maxSteps = 10_000_000

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
}

// Observer holds a loaded script. If the script defines observe(tick,
// robots) it is called once per telemetry window.
type Observer struct {
	name    string
	observe starlark.Callable
	logger  *slog.Logger
}

// Load reads and executes a script file. A nil logger uses slog.Default.
func Load(path string, logger *slog.Logger) (*Observer, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return LoadSource(path, src, logger)
}

// LoadSource executes a script given as source text.
func LoadSource(name string, src any, logger *slog.Logger) (*Observer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Observer{name: name, logger: logger}
	globals, err := starlark.ExecFileOptions(fileOptions, o.newThread(), name, src, predeclared())
	if err != nil {
		return nil, fmt.Errorf("loading script %s: %w", name, err)
	}

	if v, ok := globals["observe"]; ok {
		fn, ok := v.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("loading script %s: observe is a %s, not a function", name, v.Type())
		}
		o.observe = fn
	}
	return o, nil
}

// ErrStepLimit is returned when observe runs too long.
var ErrStepLimit = errors.New("script exceeded its step limit")

// Observe calls the script's observe function. A non-None return value is
// logged.
func (o *Observer) Observe(tick int64, robots []game.EntitySnapshot) error {
	if o == nil || o.observe == nil {
		return nil
	}

	list := make([]starlark.Value, len(robots))
	for i, r := range robots {
		list[i] = robotValue(r)
	}
	arg := starlark.NewList(list)
	arg.Freeze()

	thread := o.newThread()
	thread.SetMaxExecutionSteps(maxSteps)
	res, err := starlark.Call(thread, o.observe, starlark.Tuple{starlark.MakeInt64(tick), arg}, nil)
	if err != nil {
		if thread.ExecutionSteps() >= maxSteps {
			err = fmt.Errorf("%w: %w", ErrStepLimit, err)
		}
		return fmt.Errorf("observe at tick %d: %w", tick, err)
	}
	if res != starlark.None {
		o.logger.Info("observe", "script", o.name, "tick", tick, "result", res.String())
	}
	return nil
}

// newThread returns a thread whose print output goes to the logger. A
// thread stays cancelled once it hits the step limit, so every call gets a
// new one.
func (o *Observer) newThread() *starlark.Thread {
	return &starlark.Thread{
		Name: o.name,
		Print: func(_ *starlark.Thread, msg string) {
			o.logger.Info(msg, "script", o.name)
		},
	}
}

// HasObserve reports whether the script defined observe.
func (o *Observer) HasObserve() bool {
	return o != nil && o.observe != nil
}
