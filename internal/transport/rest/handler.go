package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
	"incasso-core/internal/repository"
	"incasso-core/internal/service"
)

type CaseManager interface {
	CreateCase(ctx context.Context, in service.CreateCaseInput) (*domain.CollectionCase, error)
	GetCase(ctx context.Context, tenantID, caseID int64) (*domain.CollectionCase, []domain.Notice, error)
	RecordPayment(ctx context.Context, tenantID, caseID int64, amount decimal.Decimal) (*domain.CollectionCase, error)
	CancelCase(ctx context.Context, tenantID, caseID int64) error
	DeleteCase(ctx context.Context, tenantID, caseID int64) error
}

type JudgmentManager interface {
	Register(ctx context.Context, tenantID int64, in service.JudgmentInput) (*service.JudgmentResult, error)
	Preview(ctx context.Context, in service.JudgmentInput) (*service.JudgmentResult, error)
	Get(ctx context.Context, tenantID, judgmentID int64) (*service.JudgmentResult, error)
	Delete(ctx context.Context, tenantID, judgmentID int64) error
}

type SweepRunner interface {
	Run(ctx context.Context, tenantID, operatorID int64) (service.SweepSummary, error)
}

type CaseExporter interface {
	StartCasesExport(
		ctx context.Context,
		tenantID int64,
		selected []string,
		filter repository.CasesFilter,
		userID int64,
	) (string, error)
}

type ExportListService interface {
	GetExports(ctx context.Context, userID int64) ([]interface{}, error)
	GetExport(ctx context.Context, exportID string, userID int64) (interface{}, error)
}

type Handler struct {
	cases      CaseManager
	judgments  JudgmentManager
	sweep      SweepRunner
	exports    CaseExporter
	exportList ExportListService
}

func NewHandler(
	cases CaseManager,
	judgments JudgmentManager,
	sweep SweepRunner,
	exports CaseExporter,
	exportList ExportListService,
) *Handler {
	return &Handler{
		cases:      cases,
		judgments:  judgments,
		sweep:      sweep,
		exports:    exports,
		exportList: exportList,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/cases", func(r chi.Router) {
		r.Post("/", h.createCase)
		r.Get("/{case_id}", h.getCase)
		r.Post("/{case_id}/payments", h.recordPayment)
		r.Post("/{case_id}/cancel", h.cancelCase)
		r.Delete("/{case_id}", h.deleteCase)
	})

	r.Route("/judgments", func(r chi.Router) {
		r.Post("/", h.registerJudgment)
		r.Get("/{judgment_id}", h.getJudgment)
		r.Delete("/{judgment_id}", h.deleteJudgment)
	})

	r.Post("/accruals/preview", h.previewAccrual)

	r.Post("/sweep/run", h.runSweep)

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
		r.Post("/cases", h.exportCases)
	})

	return r
}
