package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/steve-ongera/mpesa-ledger/transfer"

const (
	defaultStatementSize = 10
	maxStatementSize     = 100
)

type TransferOptions struct {
	UnitTimeout     time.Duration
	Currency        string
	FeeSinkWalletID string
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	Limits          LimitPolicy
	Now             func() time.Time

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// TransferService is the ledger transfer engine. Every posting runs in one
// atomic unit: balances, the transaction record, its ledger entries, the
// commission and the float history row are written together or not at all.
type TransferService struct {
	store        repo_interfaces.LedgerStore
	walletRepo   repo_interfaces.WalletRepository
	agentRepo    repo_interfaces.AgentRepository
	merchantRepo repo_interfaces.MerchantRepository
	txnRepo      repo_interfaces.TransactionRepository
	charges      service_interfaces.ChargesService
	commission   CommissionCalculator
	notifier     service_interfaces.TransactionNotifier
	ids          *commons.IDGenerator
	opts         TransferOptions
	tracer       trace.Tracer
}

var _ service_interfaces.TransferService = (*TransferService)(nil)

func NewTransferService(
	store repo_interfaces.LedgerStore,
	walletRepo repo_interfaces.WalletRepository,
	agentRepo repo_interfaces.AgentRepository,
	merchantRepo repo_interfaces.MerchantRepository,
	txnRepo repo_interfaces.TransactionRepository,
	charges service_interfaces.ChargesService,
	commission CommissionCalculator,
	notifier service_interfaces.TransactionNotifier,
	ids *commons.IDGenerator,
	opts TransferOptions,
) *TransferService {
	if opts.UnitTimeout <= 0 {
		opts.UnitTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Currency = strings.ToUpper(strings.TrimSpace(opts.Currency))
	opts.FeeSinkWalletID = strings.TrimSpace(opts.FeeSinkWalletID)
	if ids == nil {
		ids = commons.NewIDGenerator()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &TransferService{
		store:        store,
		walletRepo:   walletRepo,
		agentRepo:    agentRepo,
		merchantRepo: merchantRepo,
		txnRepo:      txnRepo,
		charges:      charges,
		commission:   commission,
		notifier:     notifier,
		ids:          ids,
		opts:         opts,
		tracer:       opts.TracerProvider.Tracer(tracerName),
	}
}

type accountRef struct {
	Type domain.AccountType
	ID   string
}

type leg struct {
	role  domain.PartyRole
	ref   accountRef
	delta decimal.Decimal
}

type transferPlan struct {
	intent   service_interfaces.TransferIntent
	fee      decimal.Decimal
	total    decimal.Decimal
	legs     []leg
	agent    *domain.Agent
	merchant *domain.Merchant
}

func walletRef(id string) accountRef {
	return accountRef{Type: domain.AccountTypeWallet, ID: id}
}

func systemRef(code domain.SystemAccountCode) accountRef {
	return accountRef{Type: domain.AccountTypeSystem, ID: string(code)}
}

func floatRef(agentID string) accountRef {
	return accountRef{Type: domain.AccountTypeFloat, ID: agentID}
}

// Execute validates the intent and posts it in a fresh atomic unit bounded
// by the configured timeout. Failures are never retried here.
func (s *TransferService) Execute(ctx context.Context, intent service_interfaces.TransferIntent) (domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.execute", trace.WithAttributes(
		attribute.String("ledger.kind", string(intent.Kind)),
		attribute.String("ledger.request_id", intent.RequestID),
	))
	defer span.End()

	logger.Info("transfer service execute request", logger.Fields{
		"kind":        string(intent.Kind),
		"requestId":   intent.RequestID,
		"initiatorId": intent.InitiatorID,
		"amount":      intent.Amount.String(),
	})

	plan, err := s.plan(ctx, intent)
	if err != nil {
		logger.Error("transfer service execute validation failed", err, logger.Fields{
			"kind":      string(intent.Kind),
			"requestId": intent.RequestID,
		})
		recordSpanError(span, err)
		return domain.Transaction{}, err
	}

	txnID := s.ids.Next(intent.Kind.Prefix())
	span.SetAttributes(attribute.String("ledger.transaction_id", txnID))

	unitCtx, cancel := context.WithTimeout(ctx, s.opts.UnitTimeout)
	defer cancel()

	var txn domain.Transaction
	err = s.store.WithinUnit(unitCtx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		var postErr error
		txn, postErr = s.post(ctx, unit, plan, txnID)
		return postErr
	})
	if err != nil {
		err = unitError(unitCtx, err, s.opts.UnitTimeout)
		logger.Error("transfer service execute failed", err, logger.Fields{
			"transactionId": txnID,
			"kind":          string(intent.Kind),
			"failureKind":   string(domain.KindOf(err)),
		})
		recordSpanError(span, err)
		s.notifyFailure(ctx, txnID, plan, err)
		return domain.Transaction{}, err
	}

	logger.Info("transfer service execute success", logger.Fields{
		"transactionId": txn.ID,
		"kind":          string(txn.Kind),
		"amount":        txn.Amount.String(),
		"fee":           txn.Fee.String(),
	})
	s.Publish(ctx, txn)
	return txn, nil
}

// PostWithin posts the intent inside a unit owned by the caller. The caller
// commits the unit and then calls Publish.
func (s *TransferService) PostWithin(ctx context.Context, unit repo_interfaces.LedgerUnit, intent service_interfaces.TransferIntent) (domain.Transaction, error) {
	plan, err := s.plan(ctx, intent)
	if err != nil {
		return domain.Transaction{}, err
	}
	return s.post(ctx, unit, plan, s.ids.Next(intent.Kind.Prefix()))
}

func (s *TransferService) Publish(ctx context.Context, txn domain.Transaction) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), domain.CompletedEvent(txn, s.opts.Now().UTC()))
}

func (s *TransferService) notifyFailure(ctx context.Context, txnID string, plan transferPlan, cause error) {
	if s.notifier == nil {
		return
	}
	parties := make([]domain.EventParty, 0, len(plan.legs))
	for _, l := range plan.legs {
		parties = append(parties, domain.EventParty{Role: l.role, AccountType: l.ref.Type, AccountID: l.ref.ID})
	}
	s.notifier.Notify(context.WithoutCancel(ctx), domain.TransactionEvent{
		TransactionID: txnID,
		RequestID:     plan.intent.RequestID,
		Kind:          plan.intent.Kind,
		Status:        domain.TransactionStatusFailed,
		Amount:        plan.intent.Amount,
		Fee:           plan.fee,
		Parties:       parties,
		FailureKind:   domain.KindOf(cause),
		FailureReason: domain.Describe(cause),
		OccurredAt:    s.opts.Now().UTC(),
	})
}

// plan resolves the parties and the fee without taking any lock. Everything
// it reads is re-checked on locked rows by post.
func (s *TransferService) plan(ctx context.Context, intent service_interfaces.TransferIntent) (transferPlan, error) {
	intent.RequestID = strings.TrimSpace(intent.RequestID)
	intent.InitiatorID = strings.TrimSpace(intent.InitiatorID)
	intent.RecipientPhone = strings.TrimSpace(intent.RecipientPhone)
	intent.AgentNumber = strings.TrimSpace(intent.AgentNumber)
	intent.BusinessNumber = strings.TrimSpace(intent.BusinessNumber)
	intent.AccountReference = strings.TrimSpace(intent.AccountReference)
	intent.Narration = strings.TrimSpace(intent.Narration)

	if !intent.Kind.Valid() {
		return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "unknown transaction kind %q", intent.Kind)
	}
	if err := domain.CheckPositive(intent.Amount); err != nil {
		return transferPlan{}, err
	}
	if intent.Kind != domain.KindLoanDisbursement && intent.Kind != domain.KindLoanRepayment {
		if s.opts.MinAmount.IsPositive() && intent.Amount.LessThan(s.opts.MinAmount) {
			return transferPlan{}, domain.NewError(domain.KindInvalidAmount, "minimum %s amount is %s", intent.Kind, domain.FormatMoney(s.opts.MinAmount))
		}
		if s.opts.MaxAmount.IsPositive() && intent.Amount.GreaterThan(s.opts.MaxAmount) {
			return transferPlan{}, domain.NewError(domain.KindInvalidAmount, "maximum %s amount is %s", intent.Kind, domain.FormatMoney(s.opts.MaxAmount))
		}
	}

	fee, err := s.charges.Resolve(intent.Kind, intent.Amount)
	if err != nil {
		return transferPlan{}, err
	}

	p := transferPlan{
		intent: intent,
		fee:    fee,
		total:  intent.Amount.Add(fee),
	}
	amount := intent.Amount

	switch intent.Kind {
	case domain.KindSendMoney:
		src, err := s.initiatorWallet(ctx, intent)
		if err != nil {
			return transferPlan{}, err
		}
		if intent.RecipientPhone == "" {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "recipient phone number is required")
		}
		dst, err := s.walletRepo.GetByPhone(ctx, intent.RecipientPhone)
		if err != nil {
			return transferPlan{}, err
		}
		if dst.ID == src.ID {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "cannot send money to own wallet")
		}
		p.legs = []leg{
			{domain.PartyRoleSource, walletRef(src.ID), p.total.Neg()},
			{domain.PartyRoleDestination, walletRef(dst.ID), amount},
		}

	case domain.KindWithdrawal:
		src, err := s.initiatorWallet(ctx, intent)
		if err != nil {
			return transferPlan{}, err
		}
		agent, err := s.agentByNumber(ctx, intent.AgentNumber)
		if err != nil {
			return transferPlan{}, err
		}
		p.agent = &agent
		p.legs = []leg{
			{domain.PartyRoleSource, walletRef(src.ID), p.total.Neg()},
			{domain.PartyRoleDestination, systemRef(domain.SystemCashClearing), amount},
			{domain.PartyRoleAgentFloat, floatRef(agent.ID), amount.Neg()},
		}

	case domain.KindDeposit:
		agent, err := s.agentByNumber(ctx, intent.AgentNumber)
		if err != nil {
			return transferPlan{}, err
		}
		if intent.InitiatorID != "" && agent.OwnerID != intent.InitiatorID {
			return transferPlan{}, domain.NewError(domain.KindForbidden, "agent %s is not operated by the caller", agent.AgentNumber)
		}
		if intent.RecipientPhone == "" {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "customer phone number is required")
		}
		dst, err := s.walletRepo.GetByPhone(ctx, intent.RecipientPhone)
		if err != nil {
			return transferPlan{}, err
		}
		p.agent = &agent
		p.legs = []leg{
			{domain.PartyRoleSource, systemRef(domain.SystemCashClearing), amount.Neg()},
			{domain.PartyRoleDestination, walletRef(dst.ID), amount},
			{domain.PartyRoleAgentFloat, floatRef(agent.ID), amount.Neg()},
		}

	case domain.KindPaybill, domain.KindBuyGoods:
		src, err := s.initiatorWallet(ctx, intent)
		if err != nil {
			return transferPlan{}, err
		}
		merchant, err := s.merchantFor(ctx, intent)
		if err != nil {
			return transferPlan{}, err
		}
		if merchant.WalletID == src.ID {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "cannot pay own business number")
		}
		p.merchant = &merchant
		p.legs = []leg{
			{domain.PartyRoleSource, walletRef(src.ID), p.total.Neg()},
			{domain.PartyRoleDestination, walletRef(merchant.WalletID), amount},
		}

	case domain.KindAirtime:
		src, err := s.initiatorWallet(ctx, intent)
		if err != nil {
			return transferPlan{}, err
		}
		if p.intent.RecipientPhone == "" {
			p.intent.RecipientPhone = src.PhoneNumber
		}
		p.legs = []leg{
			{domain.PartyRoleSource, walletRef(src.ID), p.total.Neg()},
			{domain.PartyRoleDestination, systemRef(domain.SystemAirtimeSettlement), amount},
		}

	case domain.KindLoanDisbursement:
		if intent.BorrowerWalletID == "" || intent.LoanID == "" {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "loan disbursement needs a loan and borrower wallet")
		}
		p.legs = []leg{
			{domain.PartyRoleSource, systemRef(domain.SystemLoanBook), amount.Neg()},
			{domain.PartyRoleDestination, walletRef(intent.BorrowerWalletID), amount},
		}

	case domain.KindLoanRepayment:
		if intent.BorrowerWalletID == "" || intent.LoanID == "" {
			return transferPlan{}, domain.NewError(domain.KindInvalidRequest, "loan repayment needs a loan and borrower wallet")
		}
		p.legs = []leg{
			{domain.PartyRoleSource, walletRef(intent.BorrowerWalletID), amount.Neg()},
			{domain.PartyRoleDestination, systemRef(domain.SystemLoanBook), amount},
		}
	}

	if fee.IsPositive() {
		sink := systemRef(domain.SystemFeeRevenue)
		if s.opts.FeeSinkWalletID != "" {
			sink = walletRef(s.opts.FeeSinkWalletID)
		}
		p.legs = append(p.legs, leg{domain.PartyRoleFeeSink, sink, fee})
	}

	return p, nil
}

func (s *TransferService) initiatorWallet(ctx context.Context, intent service_interfaces.TransferIntent) (domain.Wallet, error) {
	if intent.InitiatorID == "" {
		return domain.Wallet{}, domain.NewError(domain.KindInvalidRequest, "initiator is required")
	}
	return s.walletRepo.GetByOwner(ctx, intent.InitiatorID)
}

func (s *TransferService) agentByNumber(ctx context.Context, agentNumber string) (domain.Agent, error) {
	if agentNumber == "" {
		return domain.Agent{}, domain.NewError(domain.KindInvalidRequest, "agent number is required")
	}
	return s.agentRepo.GetByNumber(ctx, agentNumber)
}

func (s *TransferService) merchantFor(ctx context.Context, intent service_interfaces.TransferIntent) (domain.Merchant, error) {
	if intent.BusinessNumber == "" {
		return domain.Merchant{}, domain.NewError(domain.KindInvalidRequest, "business number is required")
	}
	merchant, err := s.merchantRepo.GetByBusinessNumber(ctx, intent.BusinessNumber)
	if err != nil {
		return domain.Merchant{}, err
	}

	want := domain.MerchantTypeTill
	if intent.Kind == domain.KindPaybill {
		want = domain.MerchantTypePaybill
		if intent.AccountReference == "" {
			return domain.Merchant{}, domain.NewError(domain.KindInvalidRequest, "account reference is required for paybill")
		}
	}
	if merchant.Type != want {
		return domain.Merchant{}, domain.NewError(domain.KindInvalidRequest, "business number %s is not a %s number", merchant.BusinessNumber, want)
	}
	if !merchant.IsActive {
		return domain.Merchant{}, domain.NewError(domain.KindInactiveAccount, "merchant %s is not active", merchant.BusinessNumber)
	}
	return merchant, nil
}

// post locks every account the plan touches in the global order, validates
// on the locked rows, then writes balances and the transaction record.
func (s *TransferService) post(ctx context.Context, unit repo_interfaces.LedgerUnit, p transferPlan, txnID string) (domain.Transaction, error) {
	var (
		walletIDs   []string
		agentIDs    []string
		systemCodes []domain.SystemAccountCode
	)
	for _, l := range p.legs {
		switch l.ref.Type {
		case domain.AccountTypeWallet:
			walletIDs = append(walletIDs, l.ref.ID)
		case domain.AccountTypeFloat:
			agentIDs = append(agentIDs, l.ref.ID)
		case domain.AccountTypeSystem:
			systemCodes = append(systemCodes, domain.SystemAccountCode(l.ref.ID))
		}
	}

	wallets, err := unit.LockWallets(ctx, walletIDs...)
	if err != nil {
		return domain.Transaction{}, err
	}
	var agents map[string]domain.Agent
	if len(agentIDs) > 0 {
		if agents, err = unit.LockAgents(ctx, agentIDs...); err != nil {
			return domain.Transaction{}, err
		}
	}
	var system map[domain.SystemAccountCode]domain.SystemAccount
	if len(systemCodes) > 0 {
		if system, err = unit.LockSystemAccounts(ctx, systemCodes...); err != nil {
			return domain.Transaction{}, err
		}
	}

	// A replay is reported as a replay even when balances have moved since.
	seen, err := unit.RequestSeen(ctx, p.intent.InitiatorID, p.intent.RequestID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if seen {
		return domain.Transaction{}, domain.NewError(domain.KindDuplicateTransaction, "request %s was already processed", p.intent.RequestID)
	}

	balances := make(map[accountRef]decimal.Decimal, len(p.legs))
	for id, w := range wallets {
		if !w.IsActive {
			return domain.Transaction{}, domain.NewError(domain.KindInactiveAccount, "wallet %s is not active", id)
		}
		if s.opts.Currency != "" && w.Currency != "" && !strings.EqualFold(w.Currency, s.opts.Currency) {
			return domain.Transaction{}, domain.NewError(domain.KindInvalidRequest, "wallet %s is not a %s wallet", id, s.opts.Currency)
		}
		balances[walletRef(id)] = w.Balance
	}
	var agent domain.Agent
	for id, a := range agents {
		if !a.IsActive {
			return domain.Transaction{}, domain.NewError(domain.KindInactiveAccount, "agent %s is not active", a.AgentNumber)
		}
		agent = a
		balances[floatRef(id)] = a.FloatBalance
	}
	for code, acc := range system {
		balances[systemRef(code)] = acc.Balance
	}

	if err := s.checkLimits(ctx, unit, p, wallets); err != nil {
		return domain.Transaction{}, err
	}

	now := s.opts.Now().UTC()
	txn := domain.Transaction{
		ID:               txnID,
		RequestID:        p.intent.RequestID,
		InitiatorID:      p.intent.InitiatorID,
		Kind:             p.intent.Kind,
		Status:           domain.TransactionStatusCompleted,
		Amount:           p.intent.Amount,
		Fee:              p.fee,
		TotalAmount:      p.total,
		Currency:         s.opts.Currency,
		LoanID:           p.intent.LoanID,
		AccountReference: p.intent.AccountReference,
		RecipientPhone:   p.intent.RecipientPhone,
		Network:          p.intent.Network,
		Narration:        p.intent.Narration,
		CreatedAt:        now,
		CompletedAt:      &now,
	}
	if p.merchant != nil {
		txn.MerchantID = p.merchant.ID
	}

	for _, l := range p.legs {
		before := balances[l.ref]
		after := before.Add(l.delta)
		if after.IsNegative() && l.ref.Type != domain.AccountTypeSystem {
			if l.ref.Type == domain.AccountTypeFloat {
				return domain.Transaction{}, domain.NewError(domain.KindInsufficientFunds, "agent %s float is insufficient", agent.AgentNumber)
			}
			return domain.Transaction{}, domain.NewError(domain.KindInsufficientFunds, "insufficient balance to cover %s", domain.FormatMoney(l.delta.Neg()))
		}
		balances[l.ref] = after

		txn.Parties = append(txn.Parties, domain.PartySnapshot{
			Role:          l.role,
			AccountType:   l.ref.Type,
			AccountID:     l.ref.ID,
			BalanceBefore: before,
			BalanceAfter:  after,
		})

		switch {
		case l.ref.Type == domain.AccountTypeFloat:
			txn.AgentID = l.ref.ID
			txn.FloatEntry = &domain.FloatEntry{
				AgentID:       l.ref.ID,
				TransactionID: txnID,
				Kind:          p.intent.Kind,
				Amount:        l.delta.Abs(),
				BalanceBefore: before,
				BalanceAfter:  after,
				CreatedAt:     now,
			}
			continue
		case l.role == domain.PartyRoleSource && l.ref.Type == domain.AccountTypeWallet:
			txn.SourceWalletID = l.ref.ID
		case l.role == domain.PartyRoleDestination && l.ref.Type == domain.AccountTypeWallet:
			txn.DestinationWalletID = l.ref.ID
		}

		txn.Entries = append(txn.Entries, domain.LedgerEntry{
			TransactionID: txnID,
			AccountType:   l.ref.Type,
			AccountID:     l.ref.ID,
			Delta:         l.delta,
			BalanceAfter:  after,
			CreatedAt:     now,
		})
	}

	if !domain.SumDeltas(txn.Entries).IsZero() {
		return domain.Transaction{}, domain.NewError(domain.KindPersistenceFailure, "ledger entries for %s do not balance", txnID)
	}

	for ref, balance := range balances {
		switch ref.Type {
		case domain.AccountTypeWallet:
			err = unit.SetWalletBalance(ctx, ref.ID, balance)
		case domain.AccountTypeFloat:
			err = unit.SetAgentFloat(ctx, ref.ID, balance)
		case domain.AccountTypeSystem:
			err = unit.SetSystemBalance(ctx, domain.SystemAccountCode(ref.ID), balance)
		}
		if err != nil {
			return domain.Transaction{}, err
		}
	}

	if p.agent != nil {
		if amount, ok := s.commission.Compute(p.intent.Kind, p.intent.Amount, p.fee, agent.CommissionRate); ok {
			txn.Commission = &domain.Commission{
				ID:            "CM" + txnID,
				AgentID:       agent.ID,
				TransactionID: txnID,
				Kind:          p.intent.Kind,
				Amount:        amount,
				CreatedAt:     now,
			}
		}
	}

	if err := unit.InsertTransaction(ctx, txn); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

func (s *TransferService) checkLimits(ctx context.Context, unit repo_interfaces.LedgerUnit, p transferPlan, wallets map[string]domain.Wallet) error {
	if !s.opts.Limits.Enabled() || p.intent.Kind == domain.KindLoanDisbursement {
		return nil
	}
	source := p.legs[0]
	if source.ref.Type != domain.AccountTypeWallet {
		return nil
	}
	wallet := wallets[source.ref.ID]

	dayStart, monthStart := limitWindows(s.opts.Now())
	daily, err := unit.SumWalletDebits(ctx, wallet.ID, dayStart)
	if err != nil {
		return err
	}
	monthly, err := unit.SumWalletDebits(ctx, wallet.ID, monthStart)
	if err != nil {
		return err
	}
	return s.opts.Limits.Check(wallet, LimitUsage{Daily: daily, Monthly: monthly}, p.total)
}

func (s *TransferService) GetTransaction(ctx context.Context, transactionID string) (domain.Transaction, error) {
	id := strings.TrimSpace(transactionID)
	if id == "" {
		return domain.Transaction{}, domain.NewError(domain.KindInvalidRequest, "transaction id is required")
	}
	return s.txnRepo.GetByID(ctx, id)
}

func (s *TransferService) WalletForOwner(ctx context.Context, ownerID string) (domain.Wallet, error) {
	return s.walletRepo.GetByOwner(ctx, strings.TrimSpace(ownerID))
}

// Statement returns the caller's wallet and its most recent transactions.
func (s *TransferService) Statement(ctx context.Context, ownerID string, limit int) (domain.Wallet, []domain.Transaction, error) {
	wallet, err := s.WalletForOwner(ctx, ownerID)
	if err != nil {
		return domain.Wallet{}, nil, err
	}
	txns, err := s.txnRepo.ListByWallet(ctx, wallet.ID, clampLimit(limit))
	if err != nil {
		return domain.Wallet{}, nil, err
	}
	return wallet, txns, nil
}

func (s *TransferService) FloatHistory(ctx context.Context, ownerID string, agentNumber string, limit int) (domain.Agent, []domain.FloatEntry, error) {
	agent, err := s.operatedAgent(ctx, ownerID, agentNumber)
	if err != nil {
		return domain.Agent{}, nil, err
	}
	entries, err := s.agentRepo.ListFloatEntries(ctx, agent.ID, clampLimit(limit))
	if err != nil {
		return domain.Agent{}, nil, err
	}
	return agent, entries, nil
}

// Commissions returns the agent's lifetime commission total with the most
// recent commission rows. Only the agent's operator may read them.
func (s *TransferService) Commissions(ctx context.Context, ownerID string, agentNumber string, limit int) (service_interfaces.CommissionStatement, error) {
	agent, err := s.operatedAgent(ctx, ownerID, agentNumber)
	if err != nil {
		return service_interfaces.CommissionStatement{}, err
	}
	total, err := s.agentRepo.TotalCommission(ctx, agent.ID)
	if err != nil {
		return service_interfaces.CommissionStatement{}, err
	}
	earned, err := s.agentRepo.ListCommissions(ctx, agent.ID, clampLimit(limit))
	if err != nil {
		return service_interfaces.CommissionStatement{}, err
	}
	return service_interfaces.CommissionStatement{Agent: agent, Total: total, Commissions: earned}, nil
}

func (s *TransferService) operatedAgent(ctx context.Context, ownerID string, agentNumber string) (domain.Agent, error) {
	agent, err := s.agentByNumber(ctx, strings.TrimSpace(agentNumber))
	if err != nil {
		return domain.Agent{}, err
	}
	if agent.OwnerID != strings.TrimSpace(ownerID) {
		return domain.Agent{}, domain.NewError(domain.KindForbidden, "agent %s is not operated by the caller", agent.AgentNumber)
	}
	return agent, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultStatementSize
	case limit > maxStatementSize:
		return maxStatementSize
	default:
		return limit
	}
}

// unitError maps a failed unit to the error returned to the caller. A unit
// that ran out of time is a persistence failure unless it had already failed
// for a business reason.
func unitError(unitCtx context.Context, err error, timeout time.Duration) error {
	var de *domain.Error
	isDomain := errors.As(err, &de)
	if isDomain && de.Kind != domain.KindPersistenceFailure {
		return err
	}
	if ctxErr := unitCtx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr == nil {
			ctxErr = context.DeadlineExceeded
		}
		return domain.WrapError(domain.KindPersistenceFailure, errors.Join(ctxErr, err), "ledger unit did not complete within %s", timeout)
	}
	if isDomain {
		return err
	}
	return domain.WrapError(domain.KindPersistenceFailure, err, "ledger unit failed")
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(domain.KindOf(err)))
}
