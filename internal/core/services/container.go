package services

import (
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(
		repos.AccountRepo,
		WithBaseCurrency(cfg.BaseCurrency),
	)

	journalSvc := NewJournalService(repos.JournalRepo, container.Account)
	container.Journal = journalSvc

	container.Ingestion = NewIngestionService(repos.JournalRepo, journalSvc, container.Account)
	container.Reporting = NewReportingService(repos.ReportingRepo)

	return container
}
