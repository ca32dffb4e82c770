package controllers

import (
	"sync"

	"github.com/focusdiff/focusdiff/app/repository"
	"github.com/focusdiff/focusdiff/internal/pkg/archive"
	"github.com/focusdiff/focusdiff/internal/pkg/database"
	"github.com/focusdiff/focusdiff/internal/pkg/enhance"
	"github.com/focusdiff/focusdiff/internal/pkg/generation"
	"github.com/focusdiff/focusdiff/internal/pkg/ledger"
	"github.com/focusdiff/focusdiff/internal/pkg/payment"
	"github.com/focusdiff/focusdiff/internal/pkg/usercontext"
)

const (
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

// Shared service singletons. Built lazily so tests can swap them out and
// the app boots even when optional integrations are unconfigured.
var (
	generationSvcOnce sync.Once
	generationSvc     *generation.Service

	enhanceClientOnce sync.Once
	enhanceClient     *enhance.Client

	paymentSvcOnce sync.Once
	paymentSvc     *payment.Service

	progressStore = generation.NewProgressStore()
)

func getGenerationService() *generation.Service {
	generationSvcOnce.Do(func() {
		if generationSvc != nil {
			return
		}
		gens := repository.GetGlobalFactory().GetGenerationRepository()
		credits := ledger.NewServiceFromDB(database.GetDB())

		var archiver generation.Archiver
		if cfg, err := archive.LoadConfig(); err == nil && cfg.IsEnabled() {
			if a, err := archive.NewArchiver(cfg, gens); err == nil {
				archiver = a
			}
		}

		generationSvc = generation.NewService(
			generation.NewQueueClientFromEnv(),
			credits,
			gens,
			progressStore,
			archiver,
		)
	})
	return generationSvc
}

func getEnhanceClient() *enhance.Client {
	enhanceClientOnce.Do(func() {
		if enhanceClient == nil {
			enhanceClient = enhance.NewClientFromEnv()
		}
	})
	return enhanceClient
}

func getPaymentService() *payment.Service {
	paymentSvcOnce.Do(func() {
		if paymentSvc == nil {
			paymentSvc = payment.NewService(
				payment.NewClientFromEnv(),
				ledger.NewServiceFromDB(database.GetDB()),
				payment.NewRedemptionStore(database.GetDB()),
			)
		}
	})
	return paymentSvc
}
