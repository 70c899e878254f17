package configsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testConfig struct {
	Filter string `json:"filter"`
	Limit  int    `json:"limit"`
}

func startService(t *testing.T) *Service {
	t.Helper()
	svc := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Start(ctx)
	<-svc.Ready()
	return svc
}

func TestRegisterReadsInitialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yml")
	require.NoError(t, os.WriteFile(path, []byte("filter: type(mouse)\nlimit: 3\n"), 0644))

	svc := startService(t)
	cfg, err := Register(svc, path, testConfig{}, func(testConfig, error) {})
	require.NoError(t, err)
	assert.Equal(t, "type(mouse)", cfg.Filter)
	assert.Equal(t, 3, cfg.Limit)
}

func TestRegisterNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yml")
	require.NoError(t, os.WriteFile(path, []byte("limit: 1\n"), 0644))

	svc := startService(t)
	updates := make(chan testConfig, 1)
	_, err := Register(svc, path, testConfig{}, func(cfg testConfig, err error) {
		require.NoError(t, err)
		updates <- cfg
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("limit: 2\n"), 0644))
	select {
	case cfg := <-updates:
		assert.Equal(t, 2, cfg.Limit)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload notification")
	}
}

func TestRegisterWithDefaultCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yml")

	svc := startService(t)
	cfg, err := RegisterWithDefault(svc, path, testConfig{Filter: "type(any)", Limit: 5}, func(testConfig, error) {})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Limit)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "type(any)")
}

func TestRegisterMissingFile(t *testing.T) {
	svc := startService(t)
	_, err := Register(svc, filepath.Join(t.TempDir(), "absent.yml"), testConfig{}, func(testConfig, error) {})
	assert.Error(t, err)
}
