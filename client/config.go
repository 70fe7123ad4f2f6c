package client

import (
	"fmt"
	"strconv"

	brconfig "github.com/vctt94/bisonbotkit/config"
	"github.com/vctt94/bisonbotkit/utils"
)

// ConfigOverrides carries optional CLI/runtime overrides for config values.
type ConfigOverrides struct {
	Address         string // caller wallet address
	APIURL          string // ledger API endpoint
	ContractAddress string
	ContractName    string
	SimSeed         string // demo ledger seed (stored for replayable sessions)
}

// AppConfig is the consolidated configuration used by the breevs client app.
type AppConfig struct {
	// Absolute directory where the config/logs/session live.
	DataDir string
	// BR holds the loaded client configuration file.
	BR *brconfig.ClientConfig

	// Extracted breevs settings (also persisted in BR.ExtraConfig).
	Address         string
	APIURL          string
	ContractAddress string
	ContractName    string
	SimSeed         uint64
}

// LoadAppConfig loads breevs client configuration from disk, applies
// overrides, and returns a consolidated AppConfig. If datadir is empty, it
// uses the default application data dir for "breevscli".
func LoadAppConfig(datadir string, ov ConfigOverrides) (*AppConfig, error) {
	if datadir == "" {
		datadir = utils.AppDataDir("breevscli", false)
	}

	cfg, err := brconfig.LoadClientConfig(datadir, "breevscli.conf")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Breevs settings live in ExtraConfig; overrides win and persist in cfg.
	addr := cfg.GetString("address")
	if ov.Address != "" {
		addr = ov.Address
		cfg.SetString("address", addr)
	}
	apiURL := cfg.GetString("apiurl")
	if ov.APIURL != "" {
		apiURL = ov.APIURL
		cfg.SetString("apiurl", apiURL)
	}
	contractAddr := cfg.GetString("contractaddress")
	if ov.ContractAddress != "" {
		contractAddr = ov.ContractAddress
		cfg.SetString("contractaddress", contractAddr)
	}
	contractName := cfg.GetString("contractname")
	if contractName == "" {
		contractName = "Breevs"
	}
	if ov.ContractName != "" {
		contractName = ov.ContractName
		cfg.SetString("contractname", contractName)
	}
	seedStr := cfg.GetString("simseed")
	if ov.SimSeed != "" {
		seedStr = ov.SimSeed
		cfg.SetString("simseed", seedStr)
	}
	var seed uint64
	if seedStr != "" {
		seed, err = strconv.ParseUint(seedStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad simseed %q: %w", seedStr, err)
		}
	}

	return &AppConfig{
		DataDir:         datadir,
		BR:              cfg,
		Address:         addr,
		APIURL:          apiURL,
		ContractAddress: contractAddr,
		ContractName:    contractName,
		SimSeed:         seed,
	}, nil
}
