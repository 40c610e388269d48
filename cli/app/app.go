package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/mptrie/cli/trie"
	"github.com/nspcc-dev/mptrie/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "mptrie\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "mptrie"
	ctl.Version = config.Version
	ctl.Usage = "Merkle Patricia Trie storage tool"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, trie.NewCommands()...)
	return ctl
}
