package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"atm/app/config"
)

func TestProbe_Absent(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Wallet
	}{
		{"not configured", config.Wallet{}},
		{"missing keystore", config.Wallet{Kind: KindKeystore, KeystoreDir: filepath.Join(t.TempDir(), "missing")}},
		{"bad mnemonic", config.Wallet{Kind: KindMnemonic, Mnemonic: "abc"}},
		{"unknown kind", config.Wallet{Kind: "hardware"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProbe(tt.cfg, testChainID, nil)
			provider, ok := p.Detect(context.Background())
			assert.False(t, ok)
			assert.Nil(t, provider)
		})
	}
}

func TestProbe_Present(t *testing.T) {
	p := NewProbe(config.Wallet{Kind: KindMnemonic, Mnemonic: hardhatMnemonic, Accounts: 1}, testChainID, nil)

	first, ok := p.Detect(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "mnemonic", first.Name())

	second, ok := p.Detect(context.Background())
	assert.True(t, ok)
	assert.Same(t, first, second, "detection is idempotent")
}

func TestProbe_Keystore(t *testing.T) {
	p := NewProbe(config.Wallet{Kind: KindKeystore, KeystoreDir: t.TempDir()}, testChainID, nil)

	provider, ok := p.Detect(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "keystore", provider.Name())
}
