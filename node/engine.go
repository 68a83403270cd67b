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

// Package node wires every consensus component into the single logical
// chain-state owner described in SPEC_FULL.md §5: the Engine is the sole
// mutator of chain state, reachable only through its own methods, with
// external I/O (plugin calls, gossip, anchor publication) running off its
// mutation path.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harveybc/doin-core/channels"
	"github.com/harveybc/doin-core/coin"
	"github.com/harveybc/doin-core/common"
	"github.com/harveybc/doin-core/consensus/bounds"
	"github.com/harveybc/doin-core/consensus/commitreveal"
	"github.com/harveybc/doin-core/consensus/difficulty"
	"github.com/harveybc/doin-core/consensus/finality"
	"github.com/harveybc/doin-core/consensus/forkchoice"
	"github.com/harveybc/doin-core/consensus/incentives"
	"github.com/harveybc/doin-core/consensus/poo"
	"github.com/harveybc/doin-core/consensus/quorum"
	"github.com/harveybc/doin-core/consensus/reputation"
	"github.com/harveybc/doin-core/consensus/weights"
	"github.com/harveybc/doin-core/crypto"
	"github.com/harveybc/doin-core/feemarket"
	"github.com/harveybc/doin-core/log"
	"github.com/harveybc/doin-core/plugins"
	"github.com/harveybc/doin-core/types"
)

// Stats mirrors a small set of runtime counters surfaced to operators,
// independent of the prometheus Metrics (kept simple for log lines and
// tests that don't want a full registry).
type Stats struct {
	StartTime      time.Time
	BlocksSealed   int64
	OptimaeAccepted int64
	OptimaeRejected int64
}

// Engine is the sole owner of doin-core's chain state: the commit-reveal
// tracker, PoO accumulator, difficulty controller, reputation ledger,
// balances, fee market, payment channels, and finality tracker.
type Engine struct {
	mu sync.RWMutex

	config *Config
	domains map[string]types.Domain

	identity *crypto.Identity

	commitReveal *commitreveal.Tracker
	accumulator  *poo.Accumulator
	difficulty   *difficulty.Controller
	reputation   *reputation.Ledger
	ledger       *coin.Ledger
	fees         *feemarket.Controller
	channels     *channels.Manager
	finality     *finality.Tracker
	plugins      *plugins.Registry

	quorumEngine  *quorum.Engine
	committees    map[string]*verificationRound
	weightsParams weights.Params

	chain []*types.Block

	stats *Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs an Engine from config and a loaded (or freshly
// generated) node identity, with all sub-components seeded from their
// defaults.
func NewEngine(config *Config, identity *crypto.Identity) (*Engine, error) {
	genesis, err := types.NewGenesisBlock(config.initialThreshold())
	if err != nil {
		return nil, fmt.Errorf("node: build genesis block: %w", err)
	}

	e := &Engine{
		config:       config,
		domains:      make(map[string]types.Domain),
		identity:     identity,
		commitReveal: commitreveal.NewTracker(config.Quorum.MaxWait * 20),
		accumulator:  poo.NewAccumulator(),
		difficulty:   difficulty.NewController(config.initialThreshold(), config.difficultyParams()),
		reputation:   reputation.NewLedger(reputation.Params{HalfLife: config.Reputation.HalfLife, MinForConsensus: config.Reputation.MinForConsensus}),
		ledger:       coin.NewLedger(),
		fees:         feemarket.NewController(feemarket.DefaultParams()),
		channels:     channels.NewManager(channels.DefaultParams()),
		finality:     finality.NewTracker(config.ConfirmationDepth),
		plugins:      plugins.NewRegistry(),
		quorumEngine:  quorum.NewEngine(),
		committees:    make(map[string]*verificationRound),
		weightsParams: weights.DefaultParams(),
		chain:        []*types.Block{genesis},
		stats:        &Stats{StartTime: time.Now()},
	}
	return e, nil
}

func (c *Config) initialThreshold() float64 {
	return c.TargetBlockTime.Seconds() / 10
}

// difficultyParams builds the difficulty controller's params from the
// node's own TargetBlockTime/EpochLength, falling back to the component's
// own bounds defaults for everything else.
func (c *Config) difficultyParams() difficulty.Params {
	p := difficulty.DefaultParams()
	p.TargetIntervalSecs = c.TargetBlockTime.Seconds()
	p.EpochLength = c.EpochLength
	return p
}

// RegisterDomain adds (or updates) a domain definition and its plugin.
func (e *Engine) RegisterDomain(d types.Domain, p plugins.Plugin) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.domains[d.ID] = d
	if p != nil {
		e.plugins.Register(d.ID, p)
	}
}

// Start launches the engine's background workers: block assembly ticker,
// commitment pruner, channel sweeper, and finality/anchor checker.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	log.Info("doin-core engine starting", "domains", len(e.domains), "peer", e.identity.PeerID)

	e.wg.Add(4)
	go e.blockAssemblyLoop()
	go e.commitmentPruneLoop()
	go e.channelSweepLoop()
	go e.finalityLoop()

	log.Info("doin-core engine started")
}

// Stop signals all background workers to exit and waits for them.
func (e *Engine) Stop() {
	log.Info("doin-core engine stopping")
	e.cancel()
	e.wg.Wait()
	log.Info("doin-core engine stopped")
}

// blockAssemblyLoop periodically checks whether the PoO accumulator has
// crossed the current threshold and, if so, seals a new block.
func (e *Engine) blockAssemblyLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.config.TargetBlockTime / 4)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := e.maybeSealBlock(); err != nil {
				log.Error("block assembly failed", "error", err)
			}
		}
	}
}

// commitmentPruneLoop periodically removes expired or already-revealed
// commitments (SPEC_FULL.md §11.1).
func (e *Engine) commitmentPruneLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.config.TargetBlockTime)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			removed := e.commitReveal.Prune(time.Now())
			if removed > 0 {
				log.Debug("pruned commitments", "count", removed)
			}
		}
	}
}

// channelSweepLoop periodically closes expired payment channels.
func (e *Engine) channelSweepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.config.TargetBlockTime * 10)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			closed := e.channels.SweepExpired(time.Now())
			if len(closed) > 0 {
				log.Info("swept expired channels", "count", len(closed))
			}
		}
	}
}

// finalityLoop periodically advances implicit checkpoints and publishes an
// external anchor at config.AnchorInterval.
func (e *Engine) finalityLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.config.TargetBlockTime)
	defer ticker.Stop()
	anchorTicker := time.NewTicker(e.config.AnchorInterval)
	defer anchorTicker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.mu.RLock()
			tip := e.chain[len(e.chain)-1]
			e.mu.RUnlock()
			if cp, ok := e.finality.ImplicitCheckpoint(tip.Hash, tip.Header.Index); ok {
				e.finality.RecordImplicit(cp)
			}
		case <-anchorTicker.C:
			e.mu.RLock()
			recent := recentHashesLocked(e.chain, e.config.ConfirmationDepth)
			e.mu.RUnlock()
			if _, err := e.finality.PublishAnchor("external-anchor-service", "periodic", recent); err != nil {
				log.Debug("no checkpoint to anchor yet", "error", err)
			}
		}
	}
}

// recentHashesLocked returns up to depth block hashes immediately behind
// and including the tip, oldest first, for feeding into an anchor's
// chain_state_hash (SPEC_FULL.md §4.L). Caller must hold e.mu for reading.
func recentHashesLocked(chain []*types.Block, depth int64) []common.Hash {
	n := int64(len(chain))
	if depth <= 0 || depth > n {
		depth = n
	}
	start := n - depth
	hashes := make([]common.Hash, 0, depth)
	for i := start; i < n; i++ {
		hashes = append(hashes, chain[i].Hash)
	}
	return hashes
}

// VerifyChainAgainstAnchor checks this node's own recent chain history
// against a previously published anchor, returning the tri-state result of
// SPEC_FULL.md §4.L's verify_chain_against_anchor operation.
func (e *Engine) VerifyChainAgainstAnchor(anchor finality.Anchor) finality.VerifyResult {
	e.mu.RLock()
	recent := recentHashesLocked(e.chain, e.config.ConfirmationDepth)
	e.mu.RUnlock()
	return finality.VerifyChainAgainstAnchor(anchor, recent)
}

// SubmitCommit registers a new optimae commitment.
func (e *Engine) SubmitCommit(hash common.Hash, optimizerID, domainID string) error {
	return e.commitReveal.AddCommitment(hash, optimizerID, domainID, time.Now())
}

// SubmitReveal processes a reveal against its commitment. Callers must
// already have observed the commitment on-chain, per the ordering
// guarantee in SPEC_FULL.md §5.
func (e *Engine) SubmitReveal(r commitreveal.Reveal) error {
	return e.commitReveal.ProcessReveal(r, time.Now())
}

// verificationRound pairs an in-flight committee with the context
// ResolveVerification needs once it tallies (SPEC_FULL.md §4.F, §4.J).
type verificationRound struct {
	committee *quorum.Committee
	optimae   types.Optimae
	domain    types.Domain
}

// OpenVerificationRound selects a deterministic evaluator committee for a
// revealed optimae (SPEC_FULL.md §4.F selection, §4.P sizing) and opens it
// for voting. eligibleEvaluators is the caller-supplied active evaluator
// roster (peer discovery and gossip are outside this engine's scope); the
// engine only owns selection, vote intake, and resolution. Returns the
// selected committee, keyed by optimae.ID for subsequent RecordVote calls.
func (e *Engine) OpenVerificationRound(optimae types.Optimae, domain types.Domain, chainTipHash common.Hash, eligibleEvaluators []string, activityRatio float64) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	optimizerRep := e.reputation.Score(optimae.OptimizerID, time.Now())
	k := quorum.DynamicSize(len(eligibleEvaluators), activityRatio, optimizerRep, quorum.SizingParams{
		Base:                 e.config.DynamicQuorum.Base,
		MinSize:              e.config.DynamicQuorum.Min,
		MaxSize:              e.config.DynamicQuorum.Cap,
		ActivityThresholds:   [3]float64{0.75, 0.50, 0.25},
		ReputationThresholds: [2]float64{0.9, 0.7},
	})
	if k < e.config.Quorum.MinEvaluators {
		k = e.config.Quorum.MinEvaluators
	}

	selected := e.quorumEngine.SelectEvaluators(eligibleEvaluators, optimae.OptimizerID, string(chainTipHash), optimae.ID, k)
	e.committees[optimae.ID] = &verificationRound{
		committee: quorum.NewCommittee(optimae.ReportedPerformance, selected),
		optimae:   optimae,
		domain:    domain,
	}
	return selected
}

// domainActivity aggregates each domain's raw VUW activity counters
// (SPEC_FULL.md §4.H) over the last weightsParams.LookbackBlocks blocks.
// Callers must hold e.mu.
func (e *Engine) domainActivity() map[string]weights.DomainActivity {
	out := make(map[string]weights.DomainActivity, len(e.domains))
	for id := range e.domains {
		out[id] = weights.DomainActivity{}
	}

	lookback := e.weightsParams.LookbackBlocks
	start := int64(len(e.chain)) - lookback
	if start < 0 {
		start = 0
	}
	for _, b := range e.chain[start:] {
		for _, tx := range b.Body {
			a := out[tx.DomainID]
			switch tx.Type {
			case types.TxTaskCompleted:
				a.InferenceTasks++
			case types.TxOptimaeAccepted:
				a.AcceptedCount++
				if amt, ok := tx.Payload["weighted_amount"].(float64); ok {
					a.AbsIncrementSum += absf(amt)
				}
			}
			out[tx.DomainID] = a
		}
	}
	return out
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// RecordEvaluatorVote admits one evaluator's vote into an open verification
// round.
func (e *Engine) RecordEvaluatorVote(optimaeID string, vote quorum.Vote) error {
	e.mu.RLock()
	round, ok := e.committees[optimaeID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("node: %s", "not found")
	}
	return round.committee.RecordVote(vote)
}

// TallyVerificationRound closes an open verification round once enough
// votes are in (or the caller's max-wait deadline has passed) and feeds the
// resulting decision into ResolveVerification.
func (e *Engine) TallyVerificationRound(optimaeID string) error {
	e.mu.Lock()
	round, ok := e.committees[optimaeID]
	if ok {
		delete(e.committees, optimaeID)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("node: %s", "not found")
	}

	decision := round.committee.Tally(e.config.Quorum.Tolerance, e.config.Quorum.QuorumFraction)
	return e.ResolveVerification(VerificationOutcome{
		Optimae:  round.optimae,
		Domain:   round.domain,
		Decision: decision,
	})
}

// VerificationOutcome is the resolved result of a completed quorum for one
// optimae submission, ready to feed back into incentives, reputation, and
// the PoO accumulator.
type VerificationOutcome struct {
	Optimae  types.Optimae
	Domain   types.Domain
	Decision quorum.Decision
}

// ResolveVerification applies a completed quorum decision: computes the
// incentive reward fraction, updates reputation for the optimizer and
// every evaluator, resolves the optimae's fee-market stake, and — if
// accepted — folds its weighted performance increment into the PoO
// accumulator, where blockAssemblyLoop's next maybeSealBlock call sees
// it. Bounds are not checked here (see ValidateOptimaeSubmission). Per
// SPEC_FULL.md §4.J the effective increment is
// raw_increment * domain_weight * reputation_factor * phi.
func (e *Engine) ResolveVerification(v VerificationOutcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()

	if !v.Decision.Accepted {
		e.fees.ResolveStake(v.Optimae.ID, false)
		for evaluatorID, agreed := range v.Decision.Agreements {
			e.reputation.RecordEvalCompleted(evaluatorID, now)
			if agreed {
				e.reputation.RecordEvalAgreed(evaluatorID, now)
			} else {
				e.reputation.RecordEvalDivergent(evaluatorID, now)
			}
		}
		e.reputation.RecordOptimaeRejected(v.Optimae.OptimizerID, now)
		e.stats.OptimaeRejected++
		if v.Decision.Reason != "" {
			return fmt.Errorf("node: %s", v.Decision.Reason)
		}
		return nil
	}

	bands := incentives.DefaultBands()
	bands.HigherIsBetter = v.Domain.HigherIsBetter
	outcome := incentives.RewardFraction(v.Optimae.ReportedPerformance, v.Decision.MedianPerformance, bands)
	if outcome.Rejected {
		e.fees.ResolveStake(v.Optimae.ID, false)
		e.reputation.RecordOptimaeRejected(v.Optimae.OptimizerID, now)
		e.stats.OptimaeRejected++
		return fmt.Errorf("node: %s", outcome.RejectMsg)
	}

	e.fees.ResolveStake(v.Optimae.ID, true)
	e.reputation.RecordOptimaeAccepted(v.Optimae.OptimizerID, now)
	for evaluatorID, agreed := range v.Decision.Agreements {
		e.reputation.RecordEvalCompleted(evaluatorID, now)
		if agreed {
			e.reputation.RecordEvalAgreed(evaluatorID, now)
		} else {
			e.reputation.RecordEvalDivergent(evaluatorID, now)
		}
	}

	activity := e.domainActivity()
	demand, progress := weights.DemandAndProgress(v.Domain.ID, activity, e.weightsParams)
	w := weights.Compute(weights.Inputs{
		Domain:   v.Domain,
		Demand:   demand,
		Progress: progress,
	})

	repFactor := e.reputation.Factor(v.Optimae.OptimizerID, now)
	increment := v.Optimae.PerformanceIncrement * w * repFactor * outcome.Phi
	e.accumulator.Add(poo.Increment{
		OptimaeID:      v.Optimae.ID,
		DomainID:       v.Domain.ID,
		WeightedAmount: increment,
	})
	e.stats.OptimaeAccepted++
	return nil
}

// maybeSealBlock drains the accumulator and seals a new block once the
// current threshold has been crossed, following the fixed per-block
// ordering from SPEC_FULL.md §5: reputation/VUW already applied by
// ResolveVerification, then coinbase, seal, difficulty, finality.
func (e *Engine) maybeSealBlock() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	threshold := e.difficulty.Threshold()
	if !e.accumulator.Ready(threshold) {
		return nil
	}

	sum, incs := e.accumulator.Drain()
	tip := e.chain[len(e.chain)-1]

	body := make([]types.Transaction, 0, len(incs)+1)
	now := time.Now().Unix()

	blockReward := coin.BlockReward(tip.Header.Index + 1)
	coinbase := types.Transaction{
		Type:      types.TxCoinbase,
		PeerID:    e.identity.PeerID.String(),
		Timestamp: now,
		Payload: map[string]interface{}{
			"block_reward": blockReward,
			"increments":   len(incs),
		},
	}
	id, err := coinbase.ComputeID()
	if err != nil {
		return fmt.Errorf("node: compute coinbase id: %w", err)
	}
	coinbase.ID = string(id)
	body = append(body, coinbase)

	for _, inc := range incs {
		tx := types.Transaction{
			Type:      types.TxOptimaeAccepted,
			DomainID:  inc.DomainID,
			PeerID:    inc.OptimaeID,
			Timestamp: now,
			Payload: map[string]interface{}{
				"weighted_amount": inc.WeightedAmount,
			},
		}
		txID, err := tx.ComputeID()
		if err != nil {
			return fmt.Errorf("node: compute tx id: %w", err)
		}
		tx.ID = string(txID)
		body = append(body, tx)
	}

	block := &types.Block{
		Header: types.Header{
			Index:                  tip.Header.Index + 1,
			PreviousHash:           tip.Hash,
			Timestamp:              now,
			GeneratorID:            e.identity.PeerID.String(),
			WeightedPerformanceSum: sum,
			Threshold:              threshold,
		},
		Body: body,
	}
	if err := block.Seal(); err != nil {
		return fmt.Errorf("node: seal block: %w", err)
	}

	e.chain = append(e.chain, block)
	e.stats.BlocksSealed++

	interval := float64(block.Header.Timestamp - tip.Header.Timestamp)
	e.difficulty.OnBlock(interval)
	e.fees.AdjustBaseFee(len(body))

	if cp, ok := e.finality.ImplicitCheckpoint(block.Hash, block.Header.Index); ok {
		e.finality.RecordImplicit(cp)
	}

	log.Info("block sealed", "index", block.Header.Index, "hash", block.Hash, "txs", len(body), "weighted_sum", sum)
	return nil
}

// Tip returns the current chain head.
func (e *Engine) Tip() *types.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chain[len(e.chain)-1]
}

// ChainCandidate returns this node's view of its own chain as a fork-choice
// candidate, for comparison against peers' advertised tips.
func (e *Engine) ChainCandidate() forkchoice.Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tip := e.chain[len(e.chain)-1]
	cumulative := 0.0
	var acceptedCount int64
	for _, b := range e.chain {
		cumulative += b.Header.WeightedPerformanceSum
		for _, tx := range b.Body {
			if tx.Type == types.TxOptimaeAccepted {
				acceptedCount++
			}
		}
	}
	_, finalOK := e.finality.Latest()
	respects := true
	if finalOK {
		respects = e.finality.IsFinal(tip.Header.Index) || tip.Header.Index > 0
	}
	return forkchoice.Candidate{
		TipHash:               tip.Hash,
		CumulativeWeightedSum: cumulative,
		AcceptedCount:         acceptedCount,
		RespectsCheckpoints:   respects,
	}
}

// GetDomain returns a registered domain by ID.
func (e *Engine) GetDomain(domainID string) (types.Domain, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.domains[domainID]
	return d, ok
}

// ValidateOptimaeSubmission runs the bounds checks an optimae submission
// must pass before it is admitted to commit-reveal (SPEC_FULL.md §4.D).
func (e *Engine) ValidateOptimaeSubmission(domainID string, usage bounds.ResourceUsage, reported, incumbentBest float64) error {
	e.mu.RLock()
	domain, ok := e.domains[domainID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("node: unknown domain %q", domainID)
	}

	if err := bounds.ValidateResourceUsage(usage, bounds.DefaultResourceLimits()); err != nil {
		return err
	}
	return bounds.ValidateImprovement(reported, incumbentBest, 10.0, domain.HigherIsBetter)
}

// OpenChannel opens a new off-chain payment channel between sender and
// receiver (SPEC_FULL.md §4.O).
func (e *Engine) OpenChannel(sender, receiver string, deposit float64) (*channels.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels.Open(sender, receiver, deposit, time.Now())
}

// PayChannel applies a sender-initiated off-chain payment within an open
// channel.
func (e *Engine) PayChannel(channelID, callerID string, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels.Pay(channelID, callerID, amount, time.Now())
}

// DisputeChannel submits a higher-nonce challenge state for a channel,
// entering its dispute window.
func (e *Engine) DisputeChannel(update channels.PaymentUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels.Dispute(update, time.Now())
}

// CloseChannel cooperatively settles and closes a channel, crediting the
// settled receiver payout and sender refund to their on-chain balances as
// coinbase-free ledger credits (SPEC_FULL.md §4.O settlement).
func (e *Engine) CloseChannel(channelID string) (receiverPayout, senderRefund, fee float64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.channelLocked(channelID)
	if !ok {
		return 0, 0, 0, fmt.Errorf("node: channel %s not found", channelID)
	}
	receiverPayout, senderRefund, fee, err = e.channels.CooperativeClose(channelID, time.Now())
	if err != nil {
		return 0, 0, 0, err
	}
	e.settleChannelLocked(c, receiverPayout, senderRefund)
	return receiverPayout, senderRefund, fee, nil
}

// ResolveChannel settles a disputed channel using its pending update once
// the dispute window has elapsed, crediting balances exactly as
// CloseChannel does (SPEC_FULL.md §4.O dispute resolution).
func (e *Engine) ResolveChannel(channelID string) (receiverPayout, senderRefund, fee float64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.channelLocked(channelID)
	if !ok {
		return 0, 0, 0, fmt.Errorf("node: channel %s not found", channelID)
	}
	receiverPayout, senderRefund, fee, err = e.channels.Resolve(channelID, time.Now())
	if err != nil {
		return 0, 0, 0, err
	}
	e.settleChannelLocked(c, receiverPayout, senderRefund)
	return receiverPayout, senderRefund, fee, nil
}

// channelLocked looks up a channel's sender/receiver for settlement
// crediting. Callers must hold e.mu.
func (e *Engine) channelLocked(channelID string) (channels.Channel, bool) {
	return e.channels.Get(channelID)
}

// settleChannelLocked credits a closed channel's payout and refund directly
// to the ledger: an off-chain settlement, not a nonce-protected transfer.
// Callers must hold e.mu.
func (e *Engine) settleChannelLocked(c channels.Channel, receiverPayout, senderRefund float64) {
	e.ledger.Credit(c.Receiver, receiverPayout)
	e.ledger.Credit(c.Sender, senderRefund)
}

// Stats returns a copy of the engine's runtime counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.stats
}
