package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"TahsilatRaporu/api/exchange"
	"TahsilatRaporu/internal/config"
	"TahsilatRaporu/internal/session"
)

// CronService owns the background schedules: the daily rate-table refresh
// and the periodic maintenance sweep.
type CronService struct {
	cfg       config.JobsConfig
	rates     config.RatesConfig
	cron      *cron.Cron
	rateStore *exchange.PgRateStore
	sessions  *session.Manager

	mu      sync.Mutex
	lastRun map[string]time.Time
}

func NewCronService(cfg config.JobsConfig, rates config.RatesConfig, rateStore *exchange.PgRateStore, sessions *session.Manager) *CronService {
	return &CronService{
		cfg:       cfg,
		rates:     rates,
		cron:      cron.New(),
		rateStore: rateStore,
		sessions:  sessions,
		lastRun:   make(map[string]time.Time),
	}
}

func (s *CronService) Name() string {
	return "CronService"
}

func (s *CronService) Start() error {
	rateSchedule := s.cfg.RateRefreshSchedule
	if rateSchedule == "" {
		rateSchedule = config.DefaultRateRefreshSchedule
	}
	if _, err := s.cron.AddFunc(rateSchedule, func() {
		s.guarded("rate-refresh", 30*time.Minute, s.refreshRates)
	}); err != nil {
		return err
	}

	maintSchedule := s.cfg.MaintenanceSchedule
	if maintSchedule == "" {
		maintSchedule = config.DefaultMaintenanceSchedule
	}
	if _, err := s.cron.AddFunc(maintSchedule, func() {
		s.guarded("maintenance", 5*time.Minute, s.maintenance)
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("cron service started: rates %q, maintenance %q", rateSchedule, maintSchedule)
	return nil
}

func (s *CronService) Stop() error {
	ctx := s.cron.Stop()
	<-ctx.Done()
	return nil
}

// guarded suppresses re-entry when a schedule fires faster than the minimum
// interval, e.g. after a config typo.
func (s *CronService) guarded(name string, minInterval time.Duration, job func()) {
	s.mu.Lock()
	if last, ok := s.lastRun[name]; ok && time.Since(last) < minInterval {
		s.mu.Unlock()
		return
	}
	s.lastRun[name] = time.Now()
	s.mu.Unlock()
	job()
}

// refreshRates rolls the configured USD/TRY rate forward to today so the
// business-day fallback always finds a recent entry. Operators overwrite it
// with the real daily rate through configuration.
func (s *CronService) refreshRates() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rate := decimal.NewFromFloat(s.rates.DefaultUSDTRY)
	if rate.IsZero() {
		rate = decimal.NewFromFloat(config.DefaultUSDTRYRate)
	}
	day := time.Now()
	if _, err := s.rateStore.USDTRYRate(ctx, day); err == nil {
		return
	}
	if err := s.rateStore.SaveRate(ctx, day, rate); err != nil {
		log.Printf("[ERROR] rate refresh save: %v", err)
		return
	}
	log.Printf("USD/TRY rate seeded: %s for %s", rate, day.Format("2006-01-02"))
}

func (s *CronService) maintenance() {
	if s.sessions != nil {
		s.sessions.CleanupExpired()
	}
}
