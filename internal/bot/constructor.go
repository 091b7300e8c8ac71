package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/ledger"
	"github.com/cheng-chun-yuan/yap2win/internal/reward"
	"github.com/cheng-chun-yuan/yap2win/internal/scoring"
	"github.com/cheng-chun-yuan/yap2win/internal/storage"
	"github.com/cheng-chun-yuan/yap2win/internal/verify"
)

// Options are the behavior knobs loaded from configuration.
type Options struct {
	IdentityVerifyURL   string
	EnforceVerification bool
	DefaultPoolAmount   float64
}

func NewBot(
	api *tgbotapi.BotAPI,
	store storage.Storage,
	engine *reward.Engine,
	verifier *verify.Service,
	scorer scoring.Scorer,
	ledgerSvc ledger.Service,
	logger *zap.Logger,
	opts Options,
) *Bot {
	return &Bot{
		api:                 api,
		gw:                  &tgGateway{api: api},
		store:               store,
		engine:              engine,
		verifier:            verifier,
		scorer:              scorer,
		ledger:              ledgerSvc,
		logger:              logger,
		sessions:            make(map[int64]*Session),
		now:                 time.Now,
		identityVerifyURL:   opts.IdentityVerifyURL,
		enforceVerification: opts.EnforceVerification,
		poolAmount:          opts.DefaultPoolAmount,
	}
}
