// Package bot routes Telegram updates into the reward engine, the
// verification service and the scorer, and owns all dialog state.
package bot

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/ledger"
	"github.com/cheng-chun-yuan/yap2win/internal/models"
	"github.com/cheng-chun-yuan/yap2win/internal/reward"
	"github.com/cheng-chun-yuan/yap2win/internal/scoring"
	"github.com/cheng-chun-yuan/yap2win/internal/storage"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

// Sessions abandoned longer than this are discarded on next contact.
const sessionTTL = 30 * time.Minute

const dateFormat = "2006-01-02 15:04"

var adminStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
}

// SessionKind tells which dialog a user is currently in.
type SessionKind int

const (
	SessionSetup SessionKind = iota
	SessionRule
	SessionVerify
)

// Session is the single per-user dialog slot. Only the payload field
// matching Kind is set.
type Session struct {
	Kind    SessionKind
	Touched time.Time
	Setup   *SetupSession
	Rule    *RuleSession
	Verify  *verify.Session
}

// GroupRef names a group a dialog can target.
type GroupRef struct {
	ID   int64
	Name string
}

// SetupStep identifies where an event setup dialog stands.
type SetupStep int

const (
	SetupChoosingGroup SetupStep = iota
	SetupChoosingType
	SetupPoolAmount
	SetupRankAmount
	SetupRankDistribution
	SetupStartTime
	SetupEndTime
	SetupVerificationRules
)

// SetupSession carries an admin through event configuration.
type SetupSession struct {
	Step   SetupStep
	Groups []GroupRef
	Group  GroupRef
	Config models.EventConfig
	Rule   *models.VerificationRule
}

// RuleStep identifies where a rule setting dialog stands.
type RuleStep int

const (
	RuleChoosingGroup RuleStep = iota
	RuleEnteringSpec
)

// RuleSession carries an admin through verification rule setup.
type RuleSession struct {
	Step   RuleStep
	Groups []GroupRef
	Group  GroupRef
}

// Bot handles updates one at a time and owns the session map.
type Bot struct {
	api      *tgbotapi.BotAPI
	gw       Gateway
	store    storage.Storage
	engine   *reward.Engine
	verifier *verify.Service
	scorer   scoring.Scorer
	ledger   ledger.Service
	logger   *zap.Logger

	// updateMu serializes update handling. Polling is sequential already,
	// but webhook deliveries arrive on concurrent HTTP requests and both
	// session payloads and event accrual assume one update at a time.
	updateMu sync.Mutex

	mu       sync.Mutex
	sessions map[int64]*Session

	now func() time.Time

	identityVerifyURL   string
	enforceVerification bool
	poolAmount          float64
}
