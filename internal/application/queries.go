package application

import (
	"context"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

// GetFulfillment returns one OFR with its account name when available
func (s *FulfillmentService) GetFulfillment(ctx context.Context, fulfillmentID string) (*FulfillmentDTO, error) {
	ofr, err := s.load(ctx, fulfillmentID)
	if err != nil {
		return nil, err
	}
	names := s.accountNames(ctx, []string{ofr.AccountID})
	dto := ToFulfillmentDTO(ofr, names[ofr.AccountID])
	dto.Tasks = s.taskStatuses(ctx, ofr.TaskReferences)
	return dto, nil
}

// taskStatuses looks up the live state of an OFR's warehouse tasks. Tasks the
// task service cannot answer for are left out.
func (s *FulfillmentService) taskStatuses(ctx context.Context, refs domain.TaskReferences) []Task {
	if s.tasks == nil {
		return nil
	}
	var tasks []Task
	for _, code := range []string{refs.PickingTaskCode, refs.PackMoveTaskCode} {
		if code == "" {
			continue
		}
		task, err := s.tasks.GetTask(ctx, code)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Task lookup failed", "taskCode", code)
			continue
		}
		tasks = append(tasks, *task)
	}
	return tasks
}

// ListFulfillments returns a filtered page of OFRs
func (s *FulfillmentService) ListFulfillments(ctx context.Context, q ListFulfillmentsQuery) (*PagedResult[FulfillmentListDTO], error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, errors.ErrValidationWithFields("unknown status", map[string]string{"status": string(q.Status)})
	}
	if q.FulfillmentType != "" && !q.FulfillmentType.IsValid() {
		return nil, errors.ErrValidationWithFields("unknown fulfillment type", map[string]string{"fulfillmentType": string(q.FulfillmentType)})
	}

	filter := domain.ListFilter{AccountID: q.AccountID, Status: q.Status, FulfillmentType: q.FulfillmentType}
	page := domain.Pagination{Page: q.Page, PageSize: q.PageSize}
	ofrs, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, toAppError(err)
	}
	return s.toPage(ctx, ofrs, page, total), nil
}

// ListByStage returns a page of OFRs currently in one dashboard stage
func (s *FulfillmentService) ListByStage(ctx context.Context, q StageQuery) (*PagedResult[FulfillmentListDTO], error) {
	if _, ok := domain.RuleFor(q.Stage); !ok {
		return nil, errors.ErrValidationWithFields("unknown stage", map[string]string{"stage": string(q.Stage)})
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, errors.ErrValidationWithFields("dateTo is before dateFrom", map[string]string{"dateTo": "before dateFrom"})
	}

	page := domain.Pagination{Page: q.Page, PageSize: q.PageSize}
	ofrs, total, err := s.repo.FindByStage(ctx, q.Stage, domain.StageQuery{
		Search:   q.Search,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}, page)
	if err != nil {
		return nil, toAppError(err)
	}
	return s.toPage(ctx, ofrs, page, total), nil
}

// StageSummary counts OFRs per dashboard stage, in table order
func (s *FulfillmentService) StageSummary(ctx context.Context) ([]StageCountDTO, error) {
	counts, err := s.repo.CountByStage(ctx)
	if err != nil {
		return nil, toAppError(err)
	}
	rules := domain.StageRules()
	out := make([]StageCountDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, StageCountDTO{Stage: string(rule.Stage), Count: counts[rule.Stage]})
	}
	return out, nil
}

func (s *FulfillmentService) toPage(ctx context.Context, ofrs []*domain.OrderFulfillmentRequest, page domain.Pagination, total int64) *PagedResult[FulfillmentListDTO] {
	ids := make([]string, 0, len(ofrs))
	seen := make(map[string]struct{}, len(ofrs))
	for _, o := range ofrs {
		if _, ok := seen[o.AccountID]; !ok {
			seen[o.AccountID] = struct{}{}
			ids = append(ids, o.AccountID)
		}
	}
	names := s.accountNames(ctx, ids)

	items := make([]FulfillmentListDTO, 0, len(ofrs))
	for _, o := range ofrs {
		items = append(items, ToFulfillmentListDTO(o, names[o.AccountID]))
	}
	return &PagedResult[FulfillmentListDTO]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: total,
	}
}

// accountNames is display enrichment only; failures yield no names
func (s *FulfillmentService) accountNames(ctx context.Context, ids []string) map[string]string {
	if s.accounts == nil || len(ids) == 0 {
		return nil
	}
	names, err := s.accounts.GetAccountNames(ctx, ids)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Account name lookup failed", "accountCount", len(ids))
		return nil
	}
	return names
}
