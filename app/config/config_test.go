package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
ethereum:
  nodeUrl: "http://127.0.0.1:8545"
secrets:
  token: "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultRestAddr, cfg.RestAddr)
	assert.Equal(t, []string{defaultCorsOrigin}, cfg.CorsOrigins)
	assert.Equal(t, defaultContractAddress, cfg.Ethereum.ContractAddress)
	assert.Equal(t, int64(defaultChainID), cfg.Ethereum.ChainID)
	assert.Equal(t, int64(1), cfg.Ethereum.DefaultAmount)
	assert.Equal(t, 2*time.Minute, cfg.Ethereum.ConfirmTimeout)
	assert.Equal(t, 15*time.Second, cfg.Ethereum.PollInterval)
	assert.Equal(t, uint64(1000), cfg.Ethereum.PacketSize)
	assert.Equal(t, "", cfg.Wallet.Kind)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no node url", "secrets:\n  token: s\n"},
		{"bad contract", "ethereum:\n  nodeUrl: http://x\n  contractAddress: 0x12\nsecrets:\n  token: s\n"},
		{"no secret", "ethereum:\n  nodeUrl: http://x\n"},
		{"unknown wallet", "ethereum:\n  nodeUrl: http://x\nwallet:\n  kind: ledger\nsecrets:\n  token: s\n"},
		{"zero packet size", "ethereum:\n  nodeUrl: http://x\n  packetSize: 0\nsecrets:\n  token: s\n"},
		{"rpc wallet without url", "ethereum:\n  nodeUrl: http://x\nwallet:\n  kind: rpc\nsecrets:\n  token: s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
