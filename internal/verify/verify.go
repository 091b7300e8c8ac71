package verify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/assets"
	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/storage"
)

// Step identifies where a verification dialog stands.
type Step string

const (
	StepChooseGroup Step = "choose_group"
	StepCountry     Step = "country"
	StepAge         Step = "age"
	StepWallet      Step = "wallet_address"
	StepDone        Step = "done"
)

// GroupOption is a group the user may verify against.
type GroupOption struct {
	ID   int64
	Name string
}

// Session tracks one user's progress through the verification dialog.
type Session struct {
	UserID           int64
	GroupID          int64
	Rule             models.VerificationRule
	Step             Step
	CountryConfirmed bool
	AgeConfirmed     bool
	NFTVerified      bool
	Address          string
	Groups           []GroupOption
	Touched          time.Time
}

// Service evaluates verification rules. Dialog state lives with the caller,
// the service itself is stateless.
type Service struct {
	store  storage.Storage
	assets assets.Registry
	logger *zap.Logger
}

func NewService(store storage.Storage, registry assets.Registry, logger *zap.Logger) *Service {
	return &Service{store: store, assets: registry, logger: logger}
}

// FirstStep picks the first dialog step the rule requires.
func FirstStep(rule models.VerificationRule) Step {
	return nextRequiredStep(rule, "")
}

// NextStep advances past current to the next step the rule requires.
func NextStep(rule models.VerificationRule, current Step) Step {
	return nextRequiredStep(rule, current)
}

func nextRequiredStep(rule models.VerificationRule, after Step) Step {
	order := []Step{StepCountry, StepAge, StepWallet}
	started := after == ""
	for _, step := range order {
		if !started {
			if step == after {
				started = true
			}
			continue
		}
		if stepRequired(rule, step) {
			return step
		}
	}
	return StepDone
}

func stepRequired(rule models.VerificationRule, step Step) bool {
	switch step {
	case StepCountry:
		return rule.Country != ""
	case StepAge:
		return rule.MinAge > 0
	case StepWallet:
		return rule.CollectAddress || rule.NFTHolder != ""
	default:
		return false
	}
}

// CheckAsset verifies NFT ownership for the session's wallet address against
// the rule's required collection.
func (s *Service) CheckAsset(ctx context.Context, sess *Session) (bool, error) {
	owns, err := s.assets.OwnsAsset(ctx, sess.Address, sess.Rule.NFTHolder)
	if err != nil {
		return false, fmt.Errorf("check nft ownership: %w", err)
	}
	return owns, nil
}

// HoldingsSummary reports the session wallet's balance per tracked
// collection.
func (s *Service) HoldingsSummary(ctx context.Context, sess *Session) (map[models.AssetKind]int, error) {
	return s.assets.Summary(ctx, sess.Address)
}

// Complete judges the finished session and persists the outcome on a pass:
// the user is marked verified and, when collected, the wallet address is
// stored.
func (s *Service) Complete(ctx context.Context, sess *Session) (bool, error) {
	rule := sess.Rule
	passed := true
	if rule.Country != "" && !sess.CountryConfirmed {
		passed = false
	}
	if rule.MinAge > 0 && !sess.AgeConfirmed {
		passed = false
	}
	if rule.NFTHolder != "" && !sess.NFTVerified {
		passed = false
	}
	if !passed {
		s.logger.Info("verification failed",
			zap.Int64("user_id", sess.UserID),
			zap.Int64("group_id", sess.GroupID))
		return false, nil
	}

	if err := s.store.MarkVerified(ctx, sess.UserID); err != nil {
		return false, fmt.Errorf("mark user verified: %w", err)
	}
	if sess.Address != "" {
		if err := s.store.SetWalletAddress(ctx, sess.UserID, sess.Address); err != nil {
			return false, fmt.Errorf("store wallet address: %w", err)
		}
	}
	s.logger.Info("user verified",
		zap.Int64("user_id", sess.UserID),
		zap.Int64("group_id", sess.GroupID))
	return true, nil
}

// ValidWalletAddress reports whether s looks like an Ethereum address.
func ValidWalletAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// RequirementsText renders a rule for display in group chats.
func RequirementsText(rule models.VerificationRule) string {
	if rule.Empty() {
		return "No verification requirements are set for this group."
	}
	var lines []string
	if rule.Country != "" {
		lines = append(lines, fmt.Sprintf("🌍 Country: %s", rule.Country))
	}
	if rule.MinAge > 0 {
		lines = append(lines, fmt.Sprintf("🔞 Minimum age: %d", rule.MinAge))
	}
	if rule.NFTHolder != "" {
		lines = append(lines, fmt.Sprintf("🖼 NFT holder: %s", assets.CollectionName(rule.NFTHolder)))
	}
	if rule.CollectAddress {
		lines = append(lines, "👛 Wallet address required")
	}
	return "Verification requirements:\n" + strings.Join(lines, "\n")
}

// ParseRuleSpec parses an admin rule line of the form
// "Country: Taiwan, Age: 18, NFT: penguin". Each field accepts "none" to
// skip it, and anything unreadable (a missing colon, a non-numeric age,
// an unknown NFT collection) drops that requirement rather than failing.
func ParseRuleSpec(groupID int64, text string) models.VerificationRule {
	rule := models.VerificationRule{GroupID: groupID, CollectAddress: true}

	for _, part := range strings.Split(text, ",") {
		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if strings.EqualFold(value, "none") {
			continue
		}

		switch key {
		case "country":
			rule.Country = value
		case "age":
			if age, err := strconv.Atoi(value); err == nil && age > 0 {
				rule.MinAge = age
			}
		case "nft":
			rule.NFTHolder = models.ParseAssetKind(strings.ToLower(value))
		}
	}
	return rule
}
