//go:build test

package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/srg/bgatt/internal/testutils"
	"github.com/srg/bgatt/internal/transport"
	"github.com/srg/bgatt/pkg/config"
)

// TestDeviceAddress is the address of the default simulated peripheral.
const TestDeviceAddress = "aa:bb:cc:dd:ee:ff"

// CommandTestSuite runs the commands against a simulated module.
// All cmd/bgatt test suites should embed this instead of SimulatedModuleSuite.
type CommandTestSuite struct {
	testutils.SimulatedModuleSuite

	origOpenTransport func(*config.Config, *logrus.Logger) (transport.Transport, error)
}

// sharedTransport keeps the suite's transport open when a command closes its session.
type sharedTransport struct {
	transport.Transport
}

func (sharedTransport) Close() error { return nil }

// SetupTest points openTransport at the simulated module and resets every flag.
func (s *CommandTestSuite) SetupTest() {
	s.SimulatedModuleSuite.SetupTest()

	s.origOpenTransport = openTransport
	tr := s.Transport
	openTransport = func(*config.Config, *logrus.Logger) (transport.Transport, error) {
		return sharedTransport{tr}, nil
	}
	resetFlags(rootCmd)
}

func (s *CommandTestSuite) TearDownTest() {
	if s.origOpenTransport != nil {
		openTransport = s.origOpenTransport
	}
	s.SimulatedModuleSuite.TearDownTest()
}

// RestartWith replaces the simulated peripheral for the rest of the test.
func (s *CommandTestSuite) RestartWith(build func(b *testutils.ProfileBuilder)) {
	s.TearDownTest()
	build(s.WithPeripheral())
	s.SetupTest()
}

// ExecuteCommand runs the root command with args, returns stdout and the error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	out, _, err := s.ExecuteCommandWithStderr(args...)
	return out, err
}

// ExecuteCommandWithStderr runs the root command with args, returns stdout, stderr and
// the error.
func (s *CommandTestSuite) ExecuteCommandWithStderr(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// WriteFile creates a file in the test's temp dir and returns its path.
func (s *CommandTestSuite) WriteFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600), "test file MUST be written")
	return path
}

// resetFlags restores every flag to its default so tests do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		switch v := f.Value.(type) {
		case pflag.SliceValue:
			_ = v.Replace(nil)
		default:
			if f.Value.Type() != "stringToString" {
				_ = f.Value.Set(f.DefValue)
			}
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
	runArgs = nil
}
