package scripting

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/pthm-cable/arena/game"
)

// robotValue converts a snapshot into a frozen dict.
func robotValue(r game.EntitySnapshot) starlark.Value {
	d := starlark.NewDict(12)
	set := func(k string, v starlark.Value) {
		d.SetKey(starlark.String(k), v)
	}
	set("id", starlark.MakeInt(r.ID))
	set("kind", starlark.String(r.Kind.String()))
	set("x", starlark.Float(r.X))
	set("y", starlark.Float(r.Y))
	set("r", starlark.Float(r.R))
	set("health", starlark.Float(r.Health))
	set("flash", starlark.Tuple{
		starlark.MakeUint(uint(r.Flash[0])),
		starlark.MakeUint(uint(r.Flash[1])),
		starlark.MakeUint(uint(r.Flash[2])),
	})
	set("name", starlark.String(r.Name))
	set("generation", starlark.MakeInt(r.Generation))
	set("fitness", starlark.Float(r.Fitness))
	set("cogs", starlark.Float(r.Cogs))
	set("fingerprint", starlark.String(r.Fingerprint))
	d.Freeze()
	return d
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"mean": starlark.NewBuiltin("mean", mean),
	}
}

// mean returns the average of a list of numbers, or 0.0 for an empty list.
func mean(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}

	var sum float64
	var n int
	iter := seq.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		f, ok := starlark.AsFloat(x)
		if !ok {
			return nil, fmt.Errorf("%s: element %d is %s, not a number", b.Name(), n, x.Type())
		}
		sum += f
		n++
	}
	if n == 0 {
		return starlark.Float(0), nil
	}
	return starlark.Float(sum / float64(n)), nil
}
