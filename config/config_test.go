package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/meshsec/provider-core/addr"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return viper.GetViper()
}

func mkDestString() string {
	var d addr.Destination
	d[0] = 0x11
	return d.String()
}

func mkValoperString() string {
	var v addr.Valoper
	v[0] = 0x22
	return v.String()
}

func TestLoadRejectsMissingRequiredAddresses(t *testing.T) {
	v := newTestViper(t)
	_, err := Load(v)
	require.ErrorContains(t, err, StakingSelfAddressKey)
}

func TestLoadResolvesFullConfig(t *testing.T) {
	dest := mkDestString()
	valoper := mkValoperString()

	v := newTestViper(t,
		"--"+StakingSelfAddressKey, dest,
		"--"+AuthorizedEndpointKey, dest,
		"--"+NativeSelfAddressKey, dest,
		"--"+NativeValidatorKey, valoper,
		"--"+RemoteValidatorsKey, valoper,
	)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "umesh", cfg.Vault.CollateralDenom)
	require.Equal(t, "umesh", cfg.Staking.StakingDenom)
	require.Len(t, cfg.Staking.RemoteValidators, 1)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.False(t, cfg.DevLogging)
}

func TestLoadRejectsMalformedValoper(t *testing.T) {
	dest := mkDestString()
	v := newTestViper(t,
		"--"+StakingSelfAddressKey, dest,
		"--"+AuthorizedEndpointKey, dest,
		"--"+NativeSelfAddressKey, dest,
		"--"+NativeValidatorKey, "not-base58-and-wrong-length",
	)

	_, err := Load(v)
	require.Error(t, err)
}
