package main

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/rowlog/app"
	aerrors "go.hackfix.me/rowlog/app/errors"
)

func main() {
	exePath, err := os.Executable()
	if err != nil {
		aerrors.Errorf(err)
		os.Exit(1)
	}

	a, err := app.New("rowlog",
		filepath.Join(xdg.ConfigHome, "rowlog", "config.json"),
		filepath.Join(xdg.DataHome, "rowlog"),
		app.WithExecutable(exePath),
		app.WithFDs(
			os.Stdin,
			colorable.NewColorable(os.Stdout),
			colorable.NewColorable(os.Stderr),
			isatty.IsTerminal(os.Stdin.Fd()),
		),
		app.WithFS(osfs.New()),
		app.WithLogger(isatty.IsTerminal(os.Stderr.Fd())),
	)
	if err != nil {
		aerrors.Errorf(err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Errorf(err)
		os.Exit(1)
	}
}
