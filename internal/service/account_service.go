package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"
)

// AccountOptions are the economy defaults of new accounts.
type AccountOptions struct {
	StartingDiamonds int64
	ReferralBonus    int64
}

// AccountService handles registration and the read-only views of an account.
type AccountService struct {
	deps Deps
	opts AccountOptions
}

func NewAccountService(d Deps, opts AccountOptions) *AccountService {
	return &AccountService{deps: d.withDefaults(), opts: opts}
}

// DisplayName falls back to the Telegram first name and then to user<ID>.
func DisplayName(id int64, username, firstName string) string {
	switch {
	case username != "":
		return username
	case firstName != "":
		return firstName
	default:
		return "user" + strconv.FormatInt(id, 10)
	}
}

// Register creates the account on first contact. Existing accounts are returned
// untouched and created is false. A valid referrer gets its bonus, referral count
// and invitation record in the same transaction as the new account.
func (s *AccountService) Register(ctx context.Context, id int64, username string, referrerID *int64) (acc *domain.Account, created bool, err error) {
	if id <= 0 {
		return nil, false, domain.ErrInvalidInput
	}

	existing, err := s.deps.Store.Get(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	floorOne, ok := s.deps.Economy.Floor(1)
	if !ok {
		return nil, false, fmt.Errorf("economy has no floor 1")
	}
	now := s.deps.now()

	var also []domain.AccountMutation
	if referrerID != nil && *referrerID != id {
		if _, err := s.deps.Store.Get(ctx, *referrerID); err == nil {
			also = append(also, domain.AccountMutation{
				AccountID: *referrerID,
				Mutation: domain.Mutation{
					Diamonds:  s.opts.ReferralBonus,
					Referrals: 1,
					Invitation: &domain.InvitationRecord{
						UserID:    id,
						Username:  username,
						Timestamp: now,
					},
					Action: domain.AuditActionReferral,
				},
			})
		} else {
			// unknown referrers are kept as a plain back-reference only
			logger.WithContext(ctx).Debug("referrer not found", "referrer_id", *referrerID, "account_id", id)
		}
	}
	if referrerID != nil && *referrerID == id {
		referrerID = nil
	}

	acc = domain.NewAccount(id, username, referrerID, s.opts.StartingDiamonds, floorOne.Rate, now)
	err = withRetry(ctx, s.deps.Retry, "register", func() error {
		created, err = s.deps.Store.Create(ctx, acc, also...)
		return err
	})
	if err != nil {
		logger.WithContext(ctx).Error("register failed", "account_id", id, "error", err)
		return nil, false, err
	}
	if !created {
		existing, err := s.deps.Store.Get(ctx, id)
		return existing, false, err
	}

	logger.WithContext(ctx).Info("account registered", "account_id", id, "referrer_id", referrerID)
	s.deps.audit(ctx, id, domain.AuditActionRegister, domain.AuditCategoryEconomy, map[string]interface{}{
		"starting_diamonds": s.opts.StartingDiamonds,
	})
	if len(also) > 0 {
		ref := also[0].AccountID
		s.deps.audit(ctx, ref, domain.AuditActionReferral, domain.AuditCategorySocial, map[string]interface{}{
			"invited_id": id,
			"bonus":      s.opts.ReferralBonus,
		})
		s.deps.notify(ctx, ref, fmt.Sprintf("🎉 You have a new referral! You earned %d diamonds.", s.opts.ReferralBonus))
	}
	return acc, true, nil
}

// View returns the read model of an account at the current time.
func (s *AccountService) View(ctx context.Context, id int64) (*AccountView, error) {
	acc, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := Project(acc, s.deps.Economy, s.deps.now())
	return &view, nil
}

// Ranking returns the top HistoryDisplayLimit accounts for kind.
func (s *AccountService) Ranking(ctx context.Context, kind domain.RankingKind) ([]domain.RankingEntry, error) {
	return s.deps.Store.Ranking(ctx, kind, domain.HistoryDisplayLimit)
}

// Friends lists invited friends, or steal candidates when steal is true.
func (s *AccountService) Friends(ctx context.Context, id int64, steal bool) ([]domain.RankingEntry, error) {
	if steal {
		return s.deps.Store.StealTargets(ctx, id, domain.HistoryDisplayLimit)
	}
	return s.deps.Store.Friends(ctx, id)
}

func (s *AccountService) TheftRecords(ctx context.Context, id int64) ([]domain.TheftRecord, error) {
	if _, err := s.deps.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Store.TheftRecords(ctx, id, domain.HistoryDisplayLimit)
}

func (s *AccountService) InvitationRecords(ctx context.Context, id int64) ([]domain.InvitationRecord, error) {
	if _, err := s.deps.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deps.Store.InvitationRecords(ctx, id, domain.HistoryDisplayLimit)
}

// Stats aggregates the economy for admins.
func (s *AccountService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.deps.Store.Stats(ctx)
}
