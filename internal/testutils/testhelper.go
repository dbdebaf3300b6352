package testutils

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelper carries the per-test logger.
type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper. BGATT_TEST_LOG=debug|trace turns on logs.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("BGATT_TEST_LOG")); err == nil {
		logger.SetLevel(lvl)
	}
	return &TestHelper{T: t, Logger: logger}
}
