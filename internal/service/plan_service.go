// FILE: internal/service/plan_service.go
// Read-only access to the plan catalog for the pricing pages
package service

import (
	"context"

	"placarcerto-be/internal/dto"
	"placarcerto-be/pkg/plans"
)

type PlanService interface {
	GetActivePlans(ctx context.Context) ([]*dto.PlanResponse, error)
	GetPremiumPlans(ctx context.Context) ([]*dto.PlanResponse, error)
	GetPlan(ctx context.Context, slug string) (*dto.PlanResponse, error)
}

type planService struct {
	catalog *plans.Catalog
}

func NewPlanService(catalog *plans.Catalog) PlanService {
	return &planService{
		catalog: catalog,
	}
}

func (s *planService) GetActivePlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	return toPlanResponses(s.catalog.Active()), nil
}

// GetPremiumPlans lists the purchasable plans, cheapest first.
func (s *planService) GetPremiumPlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	return toPlanResponses(s.catalog.Premium()), nil
}

func (s *planService) GetPlan(ctx context.Context, slug string) (*dto.PlanResponse, error) {
	plan, ok := s.catalog.Get(slug)
	if !ok || !plan.IsActive {
		return nil, ErrPlanNotFound
	}
	return toPlanResponse(plan), nil
}

func toPlanResponses(list []plans.Plan) []*dto.PlanResponse {
	res := make([]*dto.PlanResponse, 0, len(list))
	for _, p := range list {
		res = append(res, toPlanResponse(p))
	}
	return res
}
