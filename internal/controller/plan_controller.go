// FILE: internal/controller/plan_controller.go
// Controller for plan and subscription endpoints
package controller

import (
	"errors"

	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/pkg/serverutils"
	"placarcerto-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PlanController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type planController struct {
	planService         service.PlanService
	subscriptionService service.ISubscriptionService
	logger              logger.ILogger
}

func NewPlanController(planService service.PlanService, subscriptionService service.ISubscriptionService, log logger.ILogger) PlanController {
	return &planController{
		planService:         planService,
		subscriptionService: subscriptionService,
		logger:              log,
	}
}

func (c *planController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	subs := api.Group("/subscriptions")

	// Public endpoints
	subs.Get("/plans", c.GetAllPlans)
	subs.Get("/plans/premium", c.GetPremiumPlans)
	subs.Get("/plans/:slug", c.GetPlan)

	// Authenticated endpoints
	subs.Get("/my-subscription", jwtMiddleware, c.GetMySubscription)
	subs.Get("/entitlement", jwtMiddleware, c.GetEntitlement)
	subs.Post("/cancel", jwtMiddleware, c.Cancel)
	subs.Get("/history", jwtMiddleware, c.History)
}

// GetAllPlans returns all active plans for the pricing page
// @Summary Get all subscription plans
// @Tags Plans
// @Produce json
// @Success 200 {object} []dto.PlanResponse
// @Router /api/subscriptions/plans [get]
func (c *planController) GetAllPlans(ctx *fiber.Ctx) error {
	plans, err := c.planService.GetActivePlans(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Plans retrieved", plans))
}

func (c *planController) GetPremiumPlans(ctx *fiber.Ctx) error {
	plans, err := c.planService.GetPremiumPlans(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Premium plans retrieved", plans))
}

func (c *planController) GetPlan(ctx *fiber.Ctx) error {
	plan, err := c.planService.GetPlan(ctx.UserContext(), ctx.Params("slug"))
	if errors.Is(err, service.ErrPlanNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()).WithCode("plan_not_found"))
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Plan retrieved", plan))
}

// GetMySubscription returns the caller's current plan, freemium when nothing is active
// @Summary Get current subscription
// @Tags Subscriptions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MySubscriptionResponse
// @Router /api/subscriptions/my-subscription [get]
func (c *planController) GetMySubscription(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.subscriptionService.GetMySubscription(ctx.UserContext(), userId)
	if err != nil {
		return c.internalError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription retrieved", res))
}

func (c *planController) GetEntitlement(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.subscriptionService.GetEntitlement(ctx.UserContext(), userId)
	if err != nil {
		return c.internalError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Entitlement retrieved", res))
}

func (c *planController) Cancel(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.subscriptionService.Cancel(ctx.UserContext(), userId)
	if errors.Is(err, service.ErrNoActiveSubscription) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()).WithCode("no_active_subscription"))
	}
	if err != nil {
		return c.internalError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription cancelled", res))
}

func (c *planController) History(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.subscriptionService.History(ctx.UserContext(), userId)
	if err != nil {
		return c.internalError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription history retrieved", res))
}

func (c *planController) internalError(ctx *fiber.Ctx, err error) error {
	c.logger.Error("SUBSCRIPTION", "Request failed", map[string]interface{}{
		"path":  ctx.Path(),
		"error": err.Error(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Internal server error"))
}
