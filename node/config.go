// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package node

import (
	"fmt"
	"os"
	"time"

	"github.com/naoina/toml"

	"github.com/harveybc/doin-core/channels"
	"github.com/harveybc/doin-core/consensus/difficulty"
	"github.com/harveybc/doin-core/consensus/incentives"
	"github.com/harveybc/doin-core/consensus/quorum"
	"github.com/harveybc/doin-core/consensus/reputation"
	"github.com/harveybc/doin-core/feemarket"
)

// QuorumConfig is the enumerated quorum section of the node config
// (SPEC_FULL.md §6).
type QuorumConfig struct {
	MinEvaluators  int           `toml:"min_evaluators"`
	QuorumFraction float64       `toml:"quorum_fraction"`
	Tolerance      float64       `toml:"tolerance"`
	MaxWait        time.Duration `toml:"max_wait"`
}

// DynamicQuorumConfig configures SPEC_FULL.md §4.P quorum sizing.
type DynamicQuorumConfig struct {
	Base                 int     `toml:"base"`
	Min                  int     `toml:"min"`
	Cap                  int     `toml:"cap"`
	ActivityThresholds   float64 `toml:"activity_thresholds"`
	ReputationThresholds float64 `toml:"reputation_thresholds"`
}

// IncentivesConfig configures the reward-fraction curve.
type IncentivesConfig struct {
	HigherIsBetter    bool    `toml:"higher_is_better"`
	ToleranceMargin   float64 `toml:"tolerance_margin"`
	BonusThreshold    float64 `toml:"bonus_threshold"`
	MinRewardFraction float64 `toml:"min_reward_fraction"`
	MaxBonusMultiplier float64 `toml:"max_bonus_multiplier"`
}

// FeesConfig configures the fee market.
type FeesConfig struct {
	MinBaseFee            float64 `toml:"min_base_fee"`
	MaxBaseFee             float64 `toml:"max_base_fee"`
	TargetBlockSize        int     `toml:"target_block_size"`
	BaseFeeChangeDenom     float64 `toml:"base_fee_change_denom"`
	OptimaeStakeMultiplier float64 `toml:"optimae_stake_multiplier"`
	OptimaeBurnFraction    float64 `toml:"optimae_burn_fraction"`
}

// ChannelsConfig configures payment channels.
type ChannelsConfig struct {
	MinDeposit            float64       `toml:"min_deposit"`
	MaxDeposit            float64       `toml:"max_deposit"`
	DefaultExpiry         time.Duration `toml:"default_expiry"`
	DisputePeriod         time.Duration `toml:"dispute_period"`
	MaxChannelsPerPeer    int           `toml:"max_channels_per_peer"`
	SettlementFeeFraction float64       `toml:"settlement_fee_fraction"`
}

// ReputationConfig configures the reputation decay curve.
type ReputationConfig struct {
	HalfLife         time.Duration `toml:"half_life"`
	MinForConsensus  float64       `toml:"min_for_consensus"`
}

// Config is doin-core's enumerated node configuration (SPEC_FULL.md §6,
// §9.3): a thin struct loadable from TOML, deliberately without a CLI
// flag surface of its own.
type Config struct {
	DataDir          string        `toml:"data_dir"`
	IdentityKeyPath  string        `toml:"identity_key_path"`
	TargetBlockTime  time.Duration `toml:"target_block_time"`
	EpochLength      int64         `toml:"epoch_length"`
	ConfirmationDepth int64        `toml:"confirmation_depth"`
	AnchorInterval   time.Duration `toml:"anchor_interval"`

	Quorum        QuorumConfig        `toml:"quorum"`
	DynamicQuorum DynamicQuorumConfig `toml:"dynamic_quorum"`
	Incentives    IncentivesConfig    `toml:"incentives"`
	Fees          FeesConfig          `toml:"fees"`
	Channels      ChannelsConfig      `toml:"channels"`
	Reputation    ReputationConfig    `toml:"reputation"`

	MetricsAddr string `toml:"metrics_addr"`
	LogFilePath string `toml:"log_file_path"`
	Verbosity   int    `toml:"verbosity"`
}

// DefaultConfig returns the network's default configuration, assembled from
// each component's own defaults.
func DefaultConfig() *Config {
	feeDefaults := feemarket.DefaultParams()
	channelDefaults := channels.DefaultParams()
	quorumSizing := quorum.DefaultSizingParams()
	diffDefaults := difficulty.DefaultParams()
	incentiveDefaults := incentives.DefaultBands()
	reputationDefaults := reputation.DefaultParams()

	return &Config{
		DataDir:           "./datadir",
		IdentityKeyPath:   "./datadir/identity.pem",
		TargetBlockTime:   time.Duration(diffDefaults.TargetIntervalSecs) * time.Second,
		EpochLength:       diffDefaults.EpochLength,
		ConfirmationDepth: 6,
		AnchorInterval:    1 * time.Hour,

		Quorum: QuorumConfig{
			MinEvaluators:  quorumSizing.MinSize,
			QuorumFraction: 0.67,
			Tolerance:      incentiveDefaults.ToleranceMargin,
			MaxWait:        30 * time.Second,
		},
		DynamicQuorum: DynamicQuorumConfig{
			Base:                 quorumSizing.Base,
			Min:                  quorumSizing.MinSize,
			Cap:                  quorumSizing.MaxSize,
			ActivityThresholds:   quorumSizing.ActivityThresholds[2],
			ReputationThresholds: quorumSizing.ReputationThresholds[1],
		},
		Incentives: IncentivesConfig{
			HigherIsBetter:     incentiveDefaults.HigherIsBetter,
			ToleranceMargin:    incentiveDefaults.ToleranceMargin,
			BonusThreshold:     incentiveDefaults.BonusThreshold,
			MinRewardFraction:  incentiveDefaults.MinRewardFraction,
			MaxBonusMultiplier: incentiveDefaults.MaxBonusMultiplier,
		},
		Fees: FeesConfig{
			MinBaseFee:             feeDefaults.MinBaseFee,
			MaxBaseFee:             feeDefaults.MaxBaseFee,
			TargetBlockSize:        feeDefaults.TargetBlockSize,
			BaseFeeChangeDenom:     feeDefaults.BaseFeeChangeDenom,
			OptimaeStakeMultiplier: feeDefaults.OptimaeStakeMultiplier,
			OptimaeBurnFraction:    feeDefaults.OptimaeBurnFraction,
		},
		Channels: ChannelsConfig{
			MinDeposit:            channelDefaults.MinDeposit,
			MaxDeposit:             channelDefaults.MaxDeposit,
			DefaultExpiry:         channelDefaults.DefaultExpiry,
			DisputePeriod:         channelDefaults.DisputePeriod,
			MaxChannelsPerPeer:    channelDefaults.MaxChannelsPerPeer,
			SettlementFeeFraction: channelDefaults.SettlementFeeFraction,
		},
		Reputation: ReputationConfig{
			HalfLife:        reputationDefaults.HalfLife,
			MinForConsensus: reputationDefaults.MinForConsensus,
		},

		MetricsAddr: "127.0.0.1:6170",
		Verbosity:   3,
	}
}

// LoadConfig reads a TOML config file, starting from DefaultConfig and
// overriding only the fields present in the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("node: open config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("node: decode config %s: %w", path, err)
	}
	return cfg, nil
}
