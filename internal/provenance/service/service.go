package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"provchain/internal/events"
	"provchain/internal/provenance/metrics"
	"provchain/internal/provenance/models"
	"provchain/internal/provenance/store/verification"
	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
	"provchain/pkg/platform/sentinel"
)

// ManufacturerStore is the authorized-manufacturer set. Membership only
// grows; there is no removal operation.
type ManufacturerStore interface {
	Authorize(ctx context.Context, principal id.Principal, now time.Time) error
	IsAuthorized(ctx context.Context, principal id.Principal) (bool, error)
}

// ProductStore holds one record per product identifier.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	UpdateOwner(ctx context.Context, productID id.ProductID, newOwner, expectedOwner id.Principal) error
}

// TransferStore is the append-only custody ledger.
type TransferStore interface {
	Append(ctx context.Context, t *models.Transfer) (int, error)
	Count(ctx context.Context, productID id.ProductID) (int, error)
	Get(ctx context.Context, productID id.ProductID, index int) (*models.Transfer, error)
	ListByProduct(ctx context.Context, productID id.ProductID) ([]*models.Transfer, error)
}

// VerifyCache caches verification results; optional.
type VerifyCache interface {
	Find(ctx context.Context, productID id.ProductID) (*verification.Result, error)
	Save(ctx context.Context, productID id.ProductID, res *verification.Result) error
	Invalidate(ctx context.Context, productID id.ProductID) error
}

// EventPublisher records custody events for the outbound stream; optional.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Clock abstracts time for testability.
type Clock func() time.Time

// RegisterResult is the externally observable outcome of Register.
type RegisterResult struct {
	ProductID    id.ProductID
	RegisteredAt time.Time
}

// TransferResult is the externally observable outcome of Transfer.
type TransferResult struct {
	Sequence      int
	TransferredAt time.Time
}

// VerifyResult is the externally observable outcome of Verify.
type VerifyResult struct {
	IsAuthentic  bool
	CurrentOwner id.Principal
}

// Service is the provenance engine: it owns every mutation path into the
// product store, transfer ledger, and manufacturer registry, and enforces
// the custody invariants. Each operation is a single atomic unit; on any
// failure no state change is visible.
type Service struct {
	manufacturers ManufacturerStore
	products      ProductStore
	transfers     TransferStore
	txRunner      TxRunner
	locks         *productLocks
	rootPrincipal id.Principal

	logger  *slog.Logger
	events  EventPublisher
	metrics *metrics.Metrics
	cache   VerifyCache
	tracer  trace.Tracer
	clock   Clock
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithVerifyCache(cache VerifyCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) { s.locks = newProductLocks(d) }
}

// New constructs the engine. rootPrincipal is the bootstrap authority
// allowed to authorize the first manufacturer.
func New(manufacturers ManufacturerStore, products ProductStore, transfers TransferStore, txRunner TxRunner, rootPrincipal id.Principal, opts ...Option) *Service {
	s := &Service{
		manufacturers: manufacturers,
		products:      products,
		transfers:     transfers,
		txRunner:      txRunner,
		locks:         newProductLocks(0),
		rootPrincipal: rootPrincipal,
		logger:        slog.Default(),
		tracer:        otel.Tracer("provchain/provenance"),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxIDAttempts bounds the retry loop for the astronomically unlikely case
// of a generated identifier colliding with an existing product.
const maxIDAttempts = 3

// Register creates a product owned by its registering manufacturer.
//
// Errors: CodeUnauthorized when registeredBy is not an authorized
// manufacturer; CodeInvalidInput for malformed fields. Identifier
// collisions are retried internally, never surfaced.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*RegisterResult, error) {
	ctx, span := s.tracer.Start(ctx, "provenance.Register")
	defer span.End()
	defer s.observe("register", s.clock())

	req.Normalize()
	registeredBy, err := req.Principal()
	if err != nil {
		return nil, err
	}

	authorized, err := s.manufacturers.IsAuthorized(ctx, registeredBy)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check manufacturer authorization")
	}
	if !authorized {
		s.logger.WarnContext(ctx, "registration by unauthorized principal",
			"registered_by", registeredBy.String())
		return nil, dErrors.New(dErrors.CodeUnauthorized, "principal is not an authorized manufacturer")
	}

	now := s.clock().UTC().Truncate(time.Second)
	var product *models.Product
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate, err := models.NewProduct(id.NewProductID(), req.Name, req.Manufacturer, req.ManufacturingDate, req.BatchNumber, registeredBy, now)
		if err != nil {
			return nil, err
		}
		err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
			return s.products.Create(ctx, candidate)
		})
		if err == nil {
			product = candidate
			break
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
		}
	}
	if product == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique product identifier")
	}

	span.SetAttributes(attribute.String("product_id", product.ID.String()))
	s.logger.InfoContext(ctx, "product registered",
		"product_id", product.ID.String(),
		"registered_by", registeredBy.String())
	if s.metrics != nil {
		s.metrics.ProductsRegistered.Inc()
	}
	s.emit(ctx, events.Event{
		Type:      events.TypeProductRegistered,
		ProductID: product.ID,
		Actor:     registeredBy,
		Owner:     registeredBy,
		Timestamp: now,
	})

	return &RegisterResult{ProductID: product.ID, RegisteredAt: product.RegisteredAt}, nil
}

// Transfer moves custody of a product to a new owner. The initiator must be
// the current custodian. The ledger append and the owner update commit
// together or not at all.
//
// Errors: CodeNotFound, CodeInvalidState (inactive product), CodeUnauthorized
// (initiator is not the custodian), CodeTimeout (lock wait exhausted).
func (s *Service) Transfer(ctx context.Context, req models.TransferRequest) (*TransferResult, error) {
	ctx, span := s.tracer.Start(ctx, "provenance.Transfer")
	defer span.End()
	defer s.observe("transfer", s.clock())

	req.Normalize()
	productID, recipient, initiator, err := req.Parse()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("product_id", productID.String()))

	release, err := s.locks.Acquire(ctx, productID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LockTimeouts.Inc()
		}
		return nil, err
	}
	defer release()

	now := s.clock().UTC().Truncate(time.Second)
	var result *TransferResult
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.rejected("not_found")
				return dErrors.New(dErrors.CodeNotFound, "product not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
		}
		if !product.IsActive {
			s.rejected("inactive")
			return dErrors.New(dErrors.CodeInvalidState, "product is inactive")
		}
		if product.CurrentOwner != initiator {
			s.rejected("not_custodian")
			return dErrors.New(dErrors.CodeUnauthorized, "initiator is not the current custodian")
		}

		transfer, err := models.NewTransfer(productID, product.CurrentOwner, recipient, req.Location, req.AdditionalInfo, now)
		if err != nil {
			return err
		}
		seq, err := s.transfers.Append(ctx, transfer)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append transfer")
		}
		if err := s.products.UpdateOwner(ctx, productID, recipient, product.CurrentOwner); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				// The product lock should make this unreachable; the CAS is
				// the storage-level backstop for the custody invariant.
				return dErrors.New(dErrors.CodeConflict, "concurrent transfer detected")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update product owner")
		}
		result = &TransferResult{Sequence: seq, TransferredAt: transfer.TransferredAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateVerifyCache(ctx, productID)
	s.logger.InfoContext(ctx, "custody transferred",
		"product_id", productID.String(),
		"from", initiator.String(),
		"to", recipient.String(),
		"sequence", result.Sequence)
	if s.metrics != nil {
		s.metrics.TransfersCommitted.Inc()
	}
	s.emit(ctx, events.Event{
		Type:      events.TypeProductTransferred,
		ProductID: productID,
		Actor:     initiator,
		Owner:     recipient,
		Sequence:  result.Sequence,
		Timestamp: now,
	})

	return result, nil
}

// snapshotAttempts bounds the lock-free consistent-read loop before falling
// back to the product lock.
const snapshotAttempts = 3

// GetProduct returns the product record and its complete ordered transfer
// history as one consistent snapshot. Reads are lock-free: the custody
// invariant (owner equals the tail of the chain) makes a torn read
// detectable, in which case the read is retried.
func (s *Service) GetProduct(ctx context.Context, productID id.ProductID) (*models.ProductHistory, error) {
	ctx, span := s.tracer.Start(ctx, "provenance.GetProduct")
	defer span.End()
	defer s.observe("get_product", s.clock())

	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		history, err := s.readHistory(ctx, productID)
		if err != nil {
			return nil, err
		}
		if history.Consistent() {
			return history, nil
		}
	}

	// A transfer landed between the two reads on every attempt; serialize
	// with the writers instead.
	release, err := s.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.readHistory(ctx, productID)
}

func (s *Service) readHistory(ctx context.Context, productID id.ProductID) (*models.ProductHistory, error) {
	transfers, err := s.transfers.ListByProduct(ctx, productID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return &models.ProductHistory{Product: product, Transfers: transfers}, nil
}

// Verify reports whether a product is authentic (exists and is active) and
// who currently holds it. An inactive product yields isAuthentic=false, not
// an error; only a never-registered identifier is CodeNotFound.
func (s *Service) Verify(ctx context.Context, productID id.ProductID) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "provenance.Verify")
	defer span.End()
	defer s.observe("verify", s.clock())

	if s.cache != nil {
		if cached, err := s.cache.Find(ctx, productID); err == nil {
			if s.metrics != nil {
				s.metrics.VerifyCacheHits.Inc()
			}
			return &VerifyResult{IsAuthentic: cached.IsAuthentic, CurrentOwner: cached.CurrentOwner}, nil
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "verification cache lookup failed", "error", err)
		}
		if s.metrics != nil {
			s.metrics.VerifyCacheMisses.Inc()
		}
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordVerification("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}

	result := &VerifyResult{IsAuthentic: product.IsActive, CurrentOwner: product.CurrentOwner}
	if product.IsActive {
		s.recordVerification("authentic")
	} else {
		s.recordVerification("inactive")
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, productID, &verification.Result{
			IsAuthentic:  result.IsAuthentic,
			CurrentOwner: result.CurrentOwner,
		}); err != nil {
			s.logger.WarnContext(ctx, "verification cache save failed", "error", err)
		}
	}
	return result, nil
}

// AuthorizeManufacturer adds a principal to the authorized set. The
// operation is permissioned: the requester must already be authorized, or be
// the configured bootstrap root principal. Re-authorizing is idempotent.
func (s *Service) AuthorizeManufacturer(ctx context.Context, principal, requester string) error {
	ctx, span := s.tracer.Start(ctx, "provenance.AuthorizeManufacturer")
	defer span.End()
	defer s.observe("authorize_manufacturer", s.clock())

	target, err := id.ParsePrincipal(principal)
	if err != nil {
		return err
	}
	actor, err := id.ParsePrincipal(requester)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "requester is invalid")
	}

	if actor != s.rootPrincipal {
		authorized, err := s.manufacturers.IsAuthorized(ctx, actor)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check requester authorization")
		}
		if !authorized {
			s.logger.WarnContext(ctx, "authorization attempt by unauthorized requester",
				"requester", actor.String())
			return dErrors.New(dErrors.CodeUnauthorized, "requester is not authorized to add manufacturers")
		}
	}

	now := s.clock().UTC().Truncate(time.Second)
	if err := s.manufacturers.Authorize(ctx, target, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to authorize manufacturer")
	}

	s.logger.InfoContext(ctx, "manufacturer authorized",
		"principal", target.String(),
		"requester", actor.String())
	s.emit(ctx, events.Event{
		Type:      events.TypeManufacturerAuthorized,
		Actor:     actor,
		Owner:     target,
		Timestamp: now,
	})
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "custody event emit failed",
			"type", string(event.Type),
			"error", err)
	}
}

func (s *Service) invalidateVerifyCache(ctx context.Context, productID id.ProductID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed",
			"product_id", productID.String(),
			"error", err)
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRejection(reason)
	}
}

func (s *Service) recordVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordVerification(outcome)
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDuration(operation, time.Since(start).Seconds())
	}
}
