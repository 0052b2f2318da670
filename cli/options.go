package cli

import (
	"reflect"

	"github.com/alecthomas/kong"

	"go.hackfix.me/rowlog/xtime"
)

// DurationMapper parses positive durations with day and larger units, e.g.
// "90m", "1h30m" or "2d".
type DurationMapper struct{}

var _ kong.Mapper = (*DurationMapper)(nil)

// Decode implements the kong.Mapper interface.
func (DurationMapper) Decode(kctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	err := kctx.Scan.PopValueInto("duration", &value)
	if err != nil {
		return err
	}

	dur, err := xtime.ParsePositive(value)
	if err != nil {
		return err
	}

	target.Set(reflect.ValueOf(dur))

	return nil
}
