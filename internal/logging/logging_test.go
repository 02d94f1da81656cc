package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.log")

	log, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("dataset", "mpox").Info("edit committed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "edit committed")
	assert.Contains(t, string(data), "dataset=mpox")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	log, closeFn, err := New(Options{})
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
