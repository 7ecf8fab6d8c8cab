package invoices

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/metrics"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
)

// itbisDivisor backs the 18% ITBIS out of a tax-inclusive gross amount.
var itbisDivisor = decimal.RequireFromString("1.18")

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(tx *gorm.DB, input outbox.EmitInput) error
}

// ServiceParams groups dependencies for the invoice service.
type ServiceParams struct {
	Repo    Repository
	DB      TxRunner
	Outbox  EventEmitter
	Logger  *logger.Logger
	Metrics *metrics.FiscalMetrics
	Config  config.InvoicingConfig
}

// Service issues fiscal invoices against completed payments. NCF and invoice
// numbers come from row-locked sequences and are never reused.
type Service struct {
	repo    Repository
	db      TxRunner
	outbox  EventEmitter
	logger  *logger.Logger
	metrics *metrics.FiscalMetrics
	cfg     config.InvoicingConfig
}

// NewService builds an invoice service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.Outbox == nil {
		return nil, stdErrors.New("outbox is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	cfg := params.Config
	if strings.TrimSpace(cfg.NCFSeries) == "" {
		cfg.NCFSeries = "B01"
	}
	if cfg.NCFLowSupplyMark <= 0 {
		cfg.NCFLowSupplyMark = 50
	}
	return &Service{
		repo:    params.Repo,
		db:      params.DB,
		outbox:  params.Outbox,
		logger:  params.Logger,
		metrics: params.Metrics,
		cfg:     cfg,
	}, nil
}

// GenerateForPayment issues the invoice for a completed payment in its own
// transaction.
func (s *Service) GenerateForPayment(ctx context.Context, payment *models.Payment) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		invoice, err = s.GenerateForPaymentTx(ctx, tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// GenerateForPaymentTx issues the invoice inside the caller's transaction:
// backs the ITBIS out of the gross amount, allocates the next NCF from the
// configured series and the next year-scoped invoice number, and emits
// invoice.created. Exhausting the NCF series blocks the invoice entirely.
func (s *Service) GenerateForPaymentTx(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*models.Invoice, error) {
	if payment == nil {
		return nil, errors.New(errors.CodeValidation, "payment is required")
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return nil, errors.New(errors.CodeStateConflict, "invoices are issued for completed payments only").
			WithDetails(map[string]any{"status": payment.Status.String()})
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking existing invoice")
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "payment already invoiced").
			WithDetails(map[string]any{"invoiceNumber": existing.InvoiceNumber})
	}

	now := time.Now().UTC()
	subtotal := payment.Amount.Div(itbisDivisor)
	itbis := payment.Amount.Sub(subtotal)

	// The series row lock taken here also serializes the invoice-number scan
	// below; two transactions can never read the same max.
	ncf, remaining, err := s.allocateNCF(ctx, repo)
	if err != nil {
		return nil, err
	}

	number, err := s.nextInvoiceNumber(ctx, repo, now.Year())
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		PaymentID:     payment.ID,
		SupplierID:    payment.SupplierID,
		InvoiceNumber: number,
		NCF:           ncf,
		Subtotal:      subtotal.Round(2),
		ITBIS:         itbis.Round(2),
		Total:         payment.Amount.Round(2),
		Status:        enums.InvoiceStatusIssued,
		IssuedAt:      now,
	}
	if err := repo.Create(ctx, invoice); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating invoice")
	}

	if s.metrics != nil {
		s.metrics.IncInvoiceIssued(s.cfg.NCFSeries)
		s.metrics.SetNCFRemaining(s.cfg.NCFSeries, remaining)
	}

	if err := s.outbox.Emit(tx, outbox.EmitInput{
		EventType:     enums.OutboxEventInvoiceCreated,
		AggregateType: enums.OutboxAggregateInvoice,
		AggregateID:   invoice.ID,
		Data: map[string]any{
			"paymentId":     payment.ID,
			"supplierId":    payment.SupplierID,
			"invoiceNumber": invoice.InvoiceNumber,
			"ncf":           invoice.NCF,
			"total":         invoice.Total,
		},
	}); err != nil {
		return nil, err
	}

	if remaining < s.cfg.NCFLowSupplyMark {
		s.alertLowSupply(ctx, tx, remaining)
	}

	return invoice, nil
}

// Void marks an issued invoice voided. Both numbers stay allocated.
func (s *Service) Void(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var result *models.Invoice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.FindByID(ctx, id)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "loading invoice")
		}
		if invoice == nil {
			return errors.New(errors.CodeNotFound, "invoice not found")
		}
		if invoice.Status == enums.InvoiceStatusVoided {
			return errors.New(errors.CodeStateConflict, "invoice already voided")
		}
		invoice.Status = enums.InvoiceStatusVoided
		if err := repo.Update(ctx, invoice); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "voiding invoice")
		}
		result = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SeriesAvailability reports the remaining capacity of every provisioned NCF
// series, flagging the ones under the low-supply mark.
type SeriesAvailability struct {
	Series    string `json:"series"`
	Next      int64  `json:"next"`
	End       int64  `json:"end"`
	Remaining int64  `json:"remaining"`
	LowSupply bool   `json:"lowSupply"`
}

// CheckAvailability lists every NCF series with its remaining capacity.
func (s *Service) CheckAvailability(ctx context.Context) ([]SeriesAvailability, error) {
	seqs, err := s.repo.ListSequences(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing ncf sequences")
	}
	report := make([]SeriesAvailability, 0, len(seqs))
	for _, seq := range seqs {
		remaining := seq.Remaining()
		if s.metrics != nil {
			s.metrics.SetNCFRemaining(seq.Series, remaining)
		}
		report = append(report, SeriesAvailability{
			Series:    seq.Series,
			Next:      seq.Next,
			End:       seq.End,
			Remaining: remaining,
			LowSupply: remaining < s.cfg.NCFLowSupplyMark,
		})
	}
	return report, nil
}

// List returns invoices, optionally scoped to a supplier.
func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Invoice, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

// nextInvoiceNumber scans the highest number under the year prefix and
// increments, starting at 00001 each year. Callers must already hold the ncf
// series row lock; the scan is not atomic on its own.
func (s *Service) nextInvoiceNumber(ctx context.Context, repo Repository, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	max, err := repo.MaxInvoiceNumberForYear(ctx, prefix)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "scanning invoice numbers")
	}

	next := 1
	if max != "" {
		suffix := strings.TrimPrefix(max, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return "", errors.Wrap(errors.CodeInternal, err, "parsing invoice number").
				WithDetails(map[string]any{"number": max})
		}
		next = n + 1
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// allocateNCF claims the next fiscal number from the configured series under a
// row lock. Returns the formatted NCF and how many numbers the series has left.
func (s *Service) allocateNCF(ctx context.Context, repo Repository) (string, int64, error) {
	seq, err := repo.LockSequence(ctx, s.cfg.NCFSeries)
	if err != nil {
		return "", 0, errors.Wrap(errors.CodeInternal, err, "locking ncf sequence")
	}
	if seq == nil {
		return "", 0, errors.New(errors.CodeSequenceExhausted, "ncf series is not provisioned").
			WithDetails(map[string]any{"series": s.cfg.NCFSeries})
	}
	if seq.Next > seq.End {
		return "", 0, errors.New(errors.CodeSequenceExhausted, "ncf series exhausted").
			WithDetails(map[string]any{"series": seq.Series, "end": seq.End})
	}

	number := seq.Next
	seq.Next++
	if err := repo.UpdateSequence(ctx, seq); err != nil {
		return "", 0, errors.Wrap(errors.CodeInternal, err, "advancing ncf sequence")
	}

	return fmt.Sprintf("%s%08d", seq.Series, number), seq.Remaining(), nil
}

// alertLowSupply emits the operational alert for a series running out of
// numbers. A failing alert never blocks the invoice.
func (s *Service) alertLowSupply(ctx context.Context, tx *gorm.DB, remaining int64) {
	ctx = s.logger.WithFields(ctx, map[string]any{
		"series":    s.cfg.NCFSeries,
		"remaining": remaining,
	})
	s.logger.Warn(ctx, "ncf series running low")

	if err := s.outbox.Emit(tx, outbox.EmitInput{
		EventType:     enums.OutboxEventNCFLowSupply,
		AggregateType: enums.OutboxAggregateNCFSeries,
		AggregateID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.cfg.NCFSeries)),
		Data: map[string]any{
			"series":    s.cfg.NCFSeries,
			"remaining": remaining,
			"threshold": s.cfg.NCFLowSupplyMark,
		},
	}); err != nil {
		s.logger.Error(ctx, "emitting ncf low-supply alert", err)
	}
}
