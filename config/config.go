// Package config loads the mesh provider process's configuration from
// flags and environment via viper, building typed sub-configs out of a
// *viper.Viper one getXConfig helper at a time (compare
// config.GetNodeConfig), except each helper here returns a piece of
// the provider's own domain config (vault, staking, native proxy)
// instead of a consensus engine's.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meshsec/provider-core/addr"
)

// Flag/viper keys. Grouped the way cmd/chain/create/flags.go groups its
// key constants next to AddFlags.
const (
	ListenAddrKey       = "http.listen-addr"
	MetricsNamespaceKey = "metrics.namespace"
	DevLoggingKey       = "log.dev"

	CollateralDenomKey = "vault.collateral-denom"

	StakingDenomKey       = "staking.denom"
	RewardsDenomKey       = "staking.rewards-denom"
	StakingSelfAddressKey = "staking.self-address"
	AuthorizedEndpointKey = "staking.authorized-endpoint"
	StakingUnbondingKey   = "staking.unbonding-period"
	StakingMaxSlashPPMKey = "staking.max-slash-ppm"
	RemoteValidatorsKey   = "staking.remote-validators"

	NativeDenomKey       = "native.denom"
	NativeValidatorKey   = "native.validator"
	NativeSelfAddressKey = "native.self-address"
	NativeUnbondingKey   = "native.unbonding-period"
	NativeMaxSlashPPMKey = "native.max-slash-ppm"
)

// AddFlags registers every key above on fs with its default, mirroring
// cmd/chain/create/flags.go's AddFlags(flags *pflag.FlagSet).
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ListenAddrKey, ":8080", "address the JSON-RPC and websocket servers listen on")
	fs.String(MetricsNamespaceKey, "mesh", "Prometheus namespace for exported metrics")
	fs.Bool(DevLoggingKey, false, "use a human-readable development logger instead of JSON")

	fs.String(CollateralDenomKey, "umesh", "denom the vault accepts as bonded collateral")

	fs.String(StakingDenomKey, "umesh", "denom external staking accepts for virtual stakes")
	fs.String(RewardsDenomKey, "umesh", "denom external staking distributes rewards in")
	fs.String(StakingSelfAddressKey, "", "base58 destination identity external staking presents to the vault")
	fs.String(AuthorizedEndpointKey, "", "base58 destination identity of the vault, stored in external staking's config (callers are not checked against it)")
	fs.Duration(StakingUnbondingKey, 21*24*time.Hour, "external staking's unbonding period")
	fs.Uint64(StakingMaxSlashPPMKey, 100_000, "external staking's worst-case slashable fraction, parts-per-million")
	fs.StringSlice(RemoteValidatorsKey, nil, "base58 valopers to seed the external validator set with, active immediately")

	fs.String(NativeDenomKey, "umesh", "denom the native staking proxy accepts")
	fs.String(NativeValidatorKey, "", "base58 valoper the native staking proxy is fixed to")
	fs.String(NativeSelfAddressKey, "", "base58 destination identity the native staking proxy presents to the vault")
	fs.Duration(NativeUnbondingKey, 21*24*time.Hour, "native staking proxy's unbonding period")
	fs.Uint64(NativeMaxSlashPPMKey, 100_000, "native staking proxy's worst-case slashable fraction, parts-per-million")

	if err := viper.BindPFlags(fs); err != nil {
		panic(fmt.Sprintf("config: failed to bind flags: %v", err))
	}
}

// VaultConfig, StakingConfig, and NativeConfig carry the values for the
// Config structs of vault, staking, and nativeproxy; StakingConfig also
// carries RemoteValidators, which seeds the validator set. They are
// separate types, so cmd/meshd copies their fields across one by one.
type VaultConfig struct {
	CollateralDenom string
}

type StakingConfig struct {
	StakingDenom       string
	RewardsDenom       string
	SelfAddress        addr.Destination
	AuthorizedEndpoint addr.Destination
	UnbondingPeriod    time.Duration
	MaxSlashPPM        uint64
	RemoteValidators   []addr.Valoper
}

type NativeConfig struct {
	Denom           string
	Validator       addr.Valoper
	SelfAddress     addr.Destination
	UnbondingPeriod time.Duration
	MaxSlashPPM     uint64
}

// Config is the fully resolved process configuration.
type Config struct {
	ListenAddr       string
	MetricsNamespace string
	DevLogging       bool

	Vault   VaultConfig
	Staking StakingConfig
	Native  NativeConfig
}

// Load pulls every key off v into a Config, the way getHTTPConfig/
// getLoggingConfig/... each pull their own slice of node.Config off the
// same *viper.Viper. Address-shaped keys are validated as base58 here so
// a malformed config fails at startup rather than at first use.
func Load(v *viper.Viper) (*Config, error) {
	stakingCfg, err := getStakingConfig(v)
	if err != nil {
		return nil, err
	}
	nativeCfg, err := getNativeConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:       v.GetString(ListenAddrKey),
		MetricsNamespace: v.GetString(MetricsNamespaceKey),
		DevLogging:       v.GetBool(DevLoggingKey),
		Vault:            VaultConfig{CollateralDenom: v.GetString(CollateralDenomKey)},
		Staking:          stakingCfg,
		Native:           nativeCfg,
	}, nil
}

func getStakingConfig(v *viper.Viper) (StakingConfig, error) {
	selfAddr, err := parseDestinationKey(v, StakingSelfAddressKey)
	if err != nil {
		return StakingConfig{}, err
	}
	authorized, err := parseDestinationKey(v, AuthorizedEndpointKey)
	if err != nil {
		return StakingConfig{}, err
	}

	var remote []addr.Valoper
	for _, s := range v.GetStringSlice(RemoteValidatorsKey) {
		valoper, err := addr.ParseValoper(s)
		if err != nil {
			return StakingConfig{}, fmt.Errorf("%s: %q: %w", RemoteValidatorsKey, s, err)
		}
		remote = append(remote, valoper)
	}

	unbonding := v.GetDuration(StakingUnbondingKey)
	if unbonding <= 0 {
		return StakingConfig{}, fmt.Errorf("%s must be > 0", StakingUnbondingKey)
	}

	return StakingConfig{
		StakingDenom:       v.GetString(StakingDenomKey),
		RewardsDenom:       v.GetString(RewardsDenomKey),
		SelfAddress:        selfAddr,
		AuthorizedEndpoint: authorized,
		UnbondingPeriod:    unbonding,
		MaxSlashPPM:        v.GetUint64(StakingMaxSlashPPMKey),
		RemoteValidators:   remote,
	}, nil
}

func getNativeConfig(v *viper.Viper) (NativeConfig, error) {
	selfAddr, err := parseDestinationKey(v, NativeSelfAddressKey)
	if err != nil {
		return NativeConfig{}, err
	}

	validatorStr := v.GetString(NativeValidatorKey)
	if validatorStr == "" {
		return NativeConfig{}, fmt.Errorf("%s must be set", NativeValidatorKey)
	}
	validator, err := addr.ParseValoper(validatorStr)
	if err != nil {
		return NativeConfig{}, fmt.Errorf("%s: %w", NativeValidatorKey, err)
	}

	unbonding := v.GetDuration(NativeUnbondingKey)
	if unbonding <= 0 {
		return NativeConfig{}, fmt.Errorf("%s must be > 0", NativeUnbondingKey)
	}

	return NativeConfig{
		Denom:           v.GetString(NativeDenomKey),
		Validator:       validator,
		SelfAddress:     selfAddr,
		UnbondingPeriod: unbonding,
		MaxSlashPPM:     v.GetUint64(NativeMaxSlashPPMKey),
	}, nil
}

func parseDestinationKey(v *viper.Viper, key string) (addr.Destination, error) {
	s := v.GetString(key)
	if s == "" {
		return addr.Destination{}, fmt.Errorf("%s must be set", key)
	}
	dest, err := addr.ParseDestination(s)
	if err != nil {
		return addr.Destination{}, fmt.Errorf("%s: %w", key, err)
	}
	return dest, nil
}
