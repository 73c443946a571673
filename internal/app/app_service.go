package app

import (
	"context"

	"stock-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type appService struct {
	purchases  core.PurchaseService
	approvals  core.ApprovalService
	ledger     core.LedgerService
	production core.ProductionService
	reconcile  core.ReconcileService
	catalog    core.CatalogService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	purchases core.PurchaseService,
	approvals core.ApprovalService,
	ledger core.LedgerService,
	production core.ProductionService,
	reconcile core.ReconcileService,
	catalog core.CatalogService,
) ApplicationService {
	return &appService{
		purchases:  purchases,
		approvals:  approvals,
		ledger:     ledger,
		production: production,
		reconcile:  reconcile,
		catalog:    catalog,
	}
}

func coreDrafts(lines []LineDraft) []core.RequestDraft {
	drafts := make([]core.RequestDraft, len(lines))
	for i, l := range lines {
		drafts[i] = core.RequestDraft{
			ItemCode:     l.ItemCode,
			ItemName:     l.ItemName,
			Quantity:     l.Quantity,
			Unit:         l.Unit,
			TotalCost:    l.TotalCost,
			LocationCode: l.LocationCode,
		}
	}
	return drafts
}

func (s *appService) SubmitBatch(ctx context.Context, req SubmitBatchRequest) (*OrderResult, error) {
	order, err := s.purchases.SubmitBatch(ctx, core.OrderHeader{
		Nickname:     req.Nickname,
		SupplierCode: req.SupplierCode,
		CreatedBy:    req.CreatedBy,
	}, coreDrafts(req.Lines))
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	order, err := s.purchases.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context) (*OrderListResult, error) {
	orders, err := s.purchases.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) GetRequest(ctx context.Context, requestID int) (*RequestResult, error) {
	req, err := s.purchases.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) ApproveItem(ctx context.Context, requestID int, actor string) (*ApprovalResult, error) {
	res, err := s.approvals.Approve(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &ApprovalResult{Request: res.Request, Entry: res.Entry}, nil
}

func (s *appService) RejectItem(ctx context.Context, requestID int, actor string) (*RequestResult, error) {
	req, err := s.approvals.Reject(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) RevertItem(ctx context.Context, requestID int, actor string) (*ApprovalResult, error) {
	res, err := s.approvals.Revert(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &ApprovalResult{Request: res.Request, Entry: res.Entry}, nil
}

func (s *appService) BatchApprove(ctx context.Context, requestIDs []int, actor string) (*BatchApproveResult, error) {
	out := &BatchApproveResult{}
	for _, item := range s.approvals.BatchApprove(ctx, requestIDs, actor) {
		bi := BatchApproveItem{RequestID: item.RequestID}
		if item.Err != nil {
			bi.Error = item.Err.Error()
			out.Failed++
		} else {
			bi.Request = item.Result.Request
			bi.Entry = item.Result.Entry
			out.Approved++
		}
		out.Items = append(out.Items, bi)
	}
	return out, nil
}

func (s *appService) RequestEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error) {
	req, err := s.purchases.RequestEdit(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) DenyEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error) {
	req, err := s.purchases.DenyEdit(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) ApproveEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error) {
	req, err := s.purchases.ApproveEdit(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) UpdateRequest(ctx context.Context, requestID int, draft LineDraft, actor string) (*RequestResult, error) {
	req, err := s.purchases.UpdateRequest(ctx, requestID, core.RequestDraft{
		ItemCode:     draft.ItemCode,
		ItemName:     draft.ItemName,
		Quantity:     draft.Quantity,
		Unit:         draft.Unit,
		TotalCost:    draft.TotalCost,
		LocationCode: draft.LocationCode,
	}, actor)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Request: req}, nil
}

func (s *appService) RequestOrderEdit(ctx context.Context, orderID int, actor string) (*OrderResult, error) {
	order, err := s.purchases.RequestOrderEdit(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ApproveOrderEdit(ctx context.Context, orderID int, actor string) (*OrderResult, error) {
	order, err := s.purchases.ApproveOrderEdit(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) SecureDeleteOrder(ctx context.Context, orderID int, actor string) error {
	return s.purchases.SecureDeleteOrder(ctx, orderID, actor)
}

func (s *appService) GetStockLevels(ctx context.Context, locationCode, itemCode string) (*StockResult, error) {
	levels, err := s.ledger.GetStockLevels(ctx, locationCode, itemCode)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*AdjustResult, error) {
	res, err := s.ledger.AdjustStock(ctx, req.ItemCode, req.LocationCode, req.NewCount,
		req.UnitCost, req.Reason, req.Actor)
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Result: res}, nil
}

func (s *appService) SimulateProduction(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal) (*core.FeasibilityReport, error) {
	return s.production.Simulate(ctx, finishedCode, locationCode, qty)
}

func (s *appService) CommitProduction(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal, actor string) (*ProductionResult, error) {
	res, err := s.production.Commit(ctx, finishedCode, locationCode, qty, actor)
	if err != nil {
		return nil, err
	}
	return &ProductionResult{Result: res}, nil
}

func (s *appService) Reconcile(ctx context.Context, scope core.ReconcileScope) (*core.ReconcileResult, error) {
	return s.reconcile.Reconcile(ctx, scope)
}

func (s *appService) ListItems(ctx context.Context) (*ItemListResult, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) ListLocations(ctx context.Context) (*LocationListResult, error) {
	locations, err := s.catalog.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: locations}, nil
}

func (s *appService) ListSuppliers(ctx context.Context) (*SupplierListResult, error) {
	suppliers, err := s.catalog.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

func (s *appService) GetBOM(ctx context.Context, finishedCode string) (*BOMResult, error) {
	lines, err := s.catalog.GetBOM(ctx, finishedCode)
	if err != nil {
		return nil, err
	}
	return &BOMResult{FinishedCode: finishedCode, Lines: lines}, nil
}
