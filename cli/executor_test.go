package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspcc-dev/mptrie/cli/app"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// Config is a path to the configuration file with the storage in a
	// temporary directory.
	Config string
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
}

const testConfig = `ApplicationConfiguration:
  LogLevel: error
  DBConfiguration:
    Type: %s
    LevelDBOptions:
      DataDirectoryPath: %s
    BoltDBOptions:
      FilePath: %s
    BadgerDBOptions:
      Dir: %s
TrieConfiguration:
  Hash: %s
  SecureKeys: %t
`

func newExecutor(t *testing.T) *executor {
	return newExecutorWithConfig(t, "leveldb", "keccak256", false)
}

func newExecutorWithConfig(t *testing.T, dbType, hashName string, secure bool) *executor {
	d := t.TempDir()
	e := &executor{
		CLI:    app.New(),
		Config: filepath.Join(d, "config.yml"),
		Out:    bytes.NewBuffer(nil),
		Err:    bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	e.writeConfig(t, dbType, hashName, secure)
	return e
}

func (e *executor) writeConfig(t *testing.T, dbType, hashName string, secure bool) {
	d := filepath.Dir(e.Config)
	data := fmt.Sprintf(testConfig, dbType, filepath.Join(d, "leveldb"), filepath.Join(d, "trie.bolt"), filepath.Join(d, "badger"), hashName, secure)
	require.NoError(t, os.WriteFile(e.Config, []byte(data), 0o644))
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	e.checkLine(t, line, expected)
}

func (e *executor) checkLine(t *testing.T, line, expected string) {
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

// RunTrie runs trie command with the test configuration.
func (e *executor) RunTrie(t *testing.T, cmd string, args ...string) {
	e.Run(t, append([]string{"mptrie", cmd, "--config-file", e.Config}, args...)...)
}

// RunTrieWithError runs trie command with the test configuration and checks
// that it fails.
func (e *executor) RunTrieWithError(t *testing.T, cmd string, args ...string) {
	e.RunWithError(t, append([]string{"mptrie", cmd, "--config-file", e.Config}, args...)...)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	return e.CLI.Run(args)
}
