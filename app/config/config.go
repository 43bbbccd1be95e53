package config

import (
	"flag"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"atm/pkg/eth"
	"atm/pkg/log"
)

const (
	defaultConfigPath = "./configs/config.yaml"

	defaultRestAddr        = ":8000"
	defaultCorsOrigin      = "http://localhost:3000"
	defaultContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	defaultChainID         = 31337
	defaultAmount          = 1
	defaultConfirmTimeout  = 2 * time.Minute
	defaultJournalTTL      = 30 * time.Minute
	defaultPollInterval    = 15 * time.Second
	defaultPacketSize      = 1000
	defaultWalletAccounts  = 1
)

type Ethereum struct {
	NodeUrl         string        `mapstructure:"nodeUrl"`
	ContractAddress string        `mapstructure:"contractAddress"`
	ChainID         int64         `mapstructure:"chainId"`
	DefaultAmount   int64         `mapstructure:"defaultAmount"`
	GasLimit        uint64        `mapstructure:"gasLimit"`
	ConfirmTimeout  time.Duration `mapstructure:"confirmTimeout"`
	JournalTTL      time.Duration `mapstructure:"journalTtl"`
	PollInterval    time.Duration `mapstructure:"pollInterval"` // 0 disables the scrappers
	PacketSize      uint64        `mapstructure:"packetSize"`
}

func (e *Ethereum) Validate() error {
	if e.NodeUrl == "" {
		return errors.New("you must provide eth node url in a config")
	}

	if !eth.IsValidAddress(e.ContractAddress) {
		return errors.New("you must provide a valid contract address in a config")
	}

	if e.ChainID <= 0 {
		return errors.New("you must provide a positive chain id in a config")
	}

	if e.DefaultAmount <= 0 {
		return errors.New("default amount must be positive")
	}

	if e.PollInterval > 0 && e.PacketSize == 0 {
		return errors.New("packet size must be positive when polling is enabled")
	}

	return nil
}

func (e *Ethereum) ChainIDBig() *big.Int {
	return big.NewInt(e.ChainID)
}

type Wallet struct {
	Kind        string `mapstructure:"kind"`
	RPCUrl      string `mapstructure:"rpcUrl"`
	KeystoreDir string `mapstructure:"keystoreDir"`
	Passphrase  string `mapstructure:"passphrase"`
	Mnemonic    string `mapstructure:"mnemonic"`
	Accounts    int    `mapstructure:"accounts"`
	AutoApprove bool   `mapstructure:"autoApprove"`
}

// Validate checks only that the selected kind has its settings.
// A missing wallet is not an error, the session starts without a provider.
func (w *Wallet) Validate() error {
	switch w.Kind {
	case "":
		return nil
	case "rpc":
		if w.RPCUrl == "" {
			return errors.New("you must provide wallet rpc url for the rpc wallet")
		}
	case "keystore":
		if w.KeystoreDir == "" {
			return errors.New("you must provide keystore dir for the keystore wallet")
		}
	case "mnemonic":
		if w.Mnemonic == "" {
			return errors.New("you must provide a mnemonic for the mnemonic wallet")
		}
	default:
		return errors.Errorf("unknown wallet kind %q", w.Kind)
	}
	return nil
}

type Secrets struct {
	Token string `mapstructure:"token"`
}

func (s *Secrets) Validate() error {
	if s.Token == "" {
		return errors.New("you must provide secrets in a config")
	}
	return nil
}

type Config struct {
	RestAddr    string     `mapstructure:"restAddr"`
	CorsOrigins []string   `mapstructure:"corsOrigins"` // origins of the web UI
	Ethereum    Ethereum   `mapstructure:"ethereum"`
	Wallet      Wallet     `mapstructure:"wallet"`
	Secrets     Secrets    `mapstructure:"secrets"`
	Logging     log.Config `mapstructure:"log"`
}

func (c *Config) Validate() error {
	// ensure ethereum config is valid
	if err := c.Ethereum.Validate(); err != nil {
		return err
	}

	if err := c.Wallet.Validate(); err != nil {
		return err
	}

	// ensure secrets are provided
	return c.Secrets.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("restAddr", defaultRestAddr)
	v.SetDefault("corsOrigins", []string{defaultCorsOrigin})
	v.SetDefault("ethereum.contractAddress", defaultContractAddress)
	v.SetDefault("ethereum.chainId", defaultChainID)
	v.SetDefault("ethereum.defaultAmount", defaultAmount)
	v.SetDefault("ethereum.confirmTimeout", defaultConfirmTimeout)
	v.SetDefault("ethereum.journalTtl", defaultJournalTTL)
	v.SetDefault("ethereum.pollInterval", defaultPollInterval)
	v.SetDefault("ethereum.packetSize", defaultPacketSize)
	v.SetDefault("wallet.accounts", defaultWalletAccounts)
}

func Parse() (*Config, error) {
	configPath := flag.String("config", defaultConfigPath, "configuration file path")
	flag.Parse()

	return Load(*configPath)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read a file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal a config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
