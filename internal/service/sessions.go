package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/amount"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/ledger"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/metrics"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/notify"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swap"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swapform"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

const (
	editTimeout = 15 * time.Second
	txTimeout   = 3 * time.Minute
)

// Session is one swap form with its notification feed.
type Session struct {
	ID        string
	Created   time.Time
	form      *swapform.Form
	feed      *notify.Feed
	sequencer *swap.Sequencer
}

// View is what a client renders: the form snapshot plus the estimated
// quote when one is shown.
type View struct {
	ID string `json:"id"`
	swapform.Snapshot
	EstimatedQuote string                `json:"estimatedQuote,omitempty"`
	QuoteShown     bool                  `json:"quoteShown"`
	Toasts         []notify.Notification `json:"toasts"`
}

// Balances are the connected account's holdings of the selected assets, in
// whole units. An unselected side is left empty.
type Balances struct {
	Account string       `json:"account"`
	Source  market.Asset `json:"source"`
	Dest    market.Asset `json:"dest"`
	In      string       `json:"sourceBalance,omitempty"`
	Out     string       `json:"destBalance,omitempty"`
}

// SessionService creates swap forms and applies user actions to them. Each
// edit settles before it returns, so the returned view is consistent.
type SessionService struct {
	BaseService
	pairs   *market.PairTable
	ledger  ledger.Ledger
	engine  *amount.Engine
	policy  swapform.Policy
	metrics *metrics.SwapMetrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(logger *slog.Logger, l ledger.Ledger, pairs *market.PairTable, policy swapform.Policy, m *metrics.SwapMetrics) *SessionService {
	return &SessionService{
		BaseService: BaseService{logger: logger},
		pairs:       pairs,
		ledger:      l,
		engine:      amount.NewEngine(logger, l, pairs),
		policy:      policy,
		metrics:     m,
		sessions:    make(map[string]*Session),
	}
}

// Pairs lists the supported oriented pairs.
func (s *SessionService) Pairs() []market.Pair {
	return s.pairs.Pairs()
}

// Assets lists the known assets.
func (s *SessionService) Assets() []market.Asset {
	return s.pairs.Assets()
}

// ResolvePath resolves src -> dst against the pair table.
func (s *SessionService) ResolvePath(src, dst market.Asset) (market.Path, error) {
	return s.pairs.ResolvePath(src, dst)
}

// Create opens a new session.
func (s *SessionService) Create() View {
	feed := notify.NewFeed(s.logger, 0)
	sess := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		form: swapform.New(swapform.Deps{
			Logger:   s.logger,
			Pairs:    s.pairs,
			Engine:   s.engine,
			Reserves: s.ledger,
			Metrics:  s.metrics,
		}, s.policy),
		feed: feed,
	}
	sess.sequencer = swap.NewSequencer(s.logger, s.ledger, s.pairs, s.engine, feed, s.metrics)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()

	s.logger.Debug("session created", "session", sess.ID)
	return s.view(context.Background(), sess)
}

// Close drops a session after its in-flight work settles.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.form.Settle()
	s.metrics.SessionClosed()
	return nil
}

func (s *SessionService) get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *SessionService) view(ctx context.Context, sess *Session) View {
	v := View{ID: sess.ID, Snapshot: sess.form.Snapshot()}
	v.EstimatedQuote, v.QuoteShown = sess.form.EstimatedQuote(ctx)
	v.Toasts = sess.feed.Active()
	return v
}

// edit applies fn to the session's form and settles it.
func (s *SessionService) edit(ctx context.Context, id string, fn func(ctx context.Context, f *swapform.Form) error) (View, error) {
	sess, err := s.get(id)
	if err != nil {
		return View{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, editTimeout)
	defer cancel()

	err = fn(ctx, sess.form)
	sess.form.Settle()
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, sess), nil
}

func (s *SessionService) View(ctx context.Context, id string) (View, error) {
	return s.edit(ctx, id, func(context.Context, *swapform.Form) error { return nil })
}

// SetAccount connects account, or disconnects when it is empty.
func (s *SessionService) SetAccount(ctx context.Context, id, account string) (View, error) {
	account = strings.TrimSpace(account)
	if account != "" && !common.IsHexAddress(account) {
		return View{}, fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	return s.edit(ctx, id, func(_ context.Context, f *swapform.Form) error {
		if account == "" {
			f.Disconnect()
			return nil
		}
		f.SetAccount(common.HexToAddress(account))
		return nil
	})
}

func (s *SessionService) EditInput(ctx context.Context, id, value string) (View, error) {
	return s.edit(ctx, id, func(ctx context.Context, f *swapform.Form) error {
		f.EditInput(ctx, value)
		return nil
	})
}

func (s *SessionService) EditOutput(ctx context.Context, id, value string) (View, error) {
	return s.edit(ctx, id, func(ctx context.Context, f *swapform.Form) error {
		f.EditOutput(ctx, value)
		return nil
	})
}

func (s *SessionService) SelectSource(ctx context.Context, id string, a market.Asset) (View, error) {
	return s.edit(ctx, id, func(ctx context.Context, f *swapform.Form) error {
		return f.SelectSource(ctx, a)
	})
}

func (s *SessionService) SelectDest(ctx context.Context, id string, a market.Asset) (View, error) {
	return s.edit(ctx, id, func(ctx context.Context, f *swapform.Form) error {
		return f.SelectDest(ctx, a)
	})
}

func (s *SessionService) Reverse(ctx context.Context, id string) (View, error) {
	return s.edit(ctx, id, func(ctx context.Context, f *swapform.Form) error {
		f.Reverse(ctx)
		return nil
	})
}

// Swap submits the session's form. The returned view reflects the form
// after the sequence ends, whatever the outcome.
func (s *SessionService) Swap(ctx context.Context, id string) (View, error) {
	return s.transact(ctx, id, func(ctx context.Context, sess *Session) error {
		return sess.sequencer.Submit(ctx, sess.form)
	})
}

// IncreaseAllowance re-approves the displayed input.
func (s *SessionService) IncreaseAllowance(ctx context.Context, id string) (View, error) {
	return s.transact(ctx, id, func(ctx context.Context, sess *Session) error {
		return sess.sequencer.IncreaseAllowance(ctx, sess.form)
	})
}

func (s *SessionService) transact(ctx context.Context, id string, fn func(ctx context.Context, sess *Session) error) (View, error) {
	sess, err := s.get(id)
	if err != nil {
		return View{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	sess.form.Settle()
	err = fn(ctx, sess)
	sess.form.Settle()
	return s.view(ctx, sess), err
}

// Balances reads the connected account's balances of both selected assets.
func (s *SessionService) Balances(ctx context.Context, id string) (Balances, error) {
	sess, err := s.get(id)
	if err != nil {
		return Balances{}, err
	}
	account, ok := sess.form.Account()
	if !ok {
		return Balances{}, swap.ErrNoAccount
	}
	snap := sess.form.Snapshot()
	ctx, cancel := context.WithTimeout(ctx, editTimeout)
	defer cancel()

	out := Balances{Account: account.Hex(), Source: snap.Source, Dest: snap.Dest}
	if out.In, err = s.balance(ctx, account, snap.Source); err != nil {
		return Balances{}, err
	}
	if out.Out, err = s.balance(ctx, account, snap.Dest); err != nil {
		return Balances{}, err
	}
	return out, nil
}

func (s *SessionService) balance(ctx context.Context, account common.Address, a market.Asset) (string, error) {
	if !a.IsSelected() {
		return "", nil
	}
	d, err := s.pairs.Decimals(a)
	if err != nil {
		return "", err
	}
	v, err := s.ledger.Balance(ctx, account, a)
	if err != nil {
		s.logger.Warn("balance read failed", "asset", a, "account", account.Hex(), "err", err)
		return "", fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	return units.FromSmallest(v, d), nil
}

// Notifications drains the session's toasts.
func (s *SessionService) Notifications(id string) ([]notify.Notification, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.feed.Drain(), nil
}
