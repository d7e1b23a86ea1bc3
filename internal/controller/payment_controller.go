// FILE: internal/controller/payment_controller.go
package controller

import (
	"errors"

	"placarcerto-be/internal/dto"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/pkg/serverutils"
	"placarcerto-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const SignatureHeader = "X-Paysuite-Signature"

type IPaymentController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
	CheckStatus(ctx *fiber.Ctx) error
	MyPayments(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
	logger  logger.ILogger
}

func NewPaymentController(service service.IPaymentService, log logger.ILogger) IPaymentController {
	return &paymentController{service: service, logger: log}
}

func (c *paymentController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/payments")
	// PaySuite calls this one; it authenticates by signature, not JWT.
	h.Post("/webhook", c.Webhook)

	h.Post("/create", jwtMiddleware, c.Create)
	h.Get("/check/:reference", jwtMiddleware, c.CheckStatus)
	h.Get("/my-payments", jwtMiddleware, c.MyPayments)
}

type createPaymentBody struct {
	Success      bool                      `json:"success"`
	Message      string                    `json:"message"`
	Payment      *dto.PaymentResponse      `json:"payment"`
	Subscription *dto.SubscriptionResponse `json:"subscription"`
	CheckoutURL  string                    `json:"checkout_url"`
}

func (c *paymentController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	var req dto.CreatePaymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		body := serverutils.ErrorResponse(400, "Invalid request").WithCode("validation_error")
		var ve *serverutils.ValidationError
		if errors.As(err, &ve) {
			body.WithDetails(ve.Fields)
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(body)
	}

	res, err := c.service.Initiate(ctx.UserContext(), userId, &req)
	if err != nil {
		return c.writeError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(createPaymentBody{
		Success:      true,
		Message:      "Payment created",
		Payment:      res.Payment,
		Subscription: res.Subscription,
		CheckoutURL:  res.CheckoutURL,
	})
}

func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	// Body() is reused by fasthttp after the handler returns.
	body := append([]byte(nil), ctx.Body()...)

	if err := c.service.ReceiveWebhook(ctx.UserContext(), body, ctx.Get(SignatureHeader)); err != nil {
		return c.writeError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true})
}

func (c *paymentController) CheckStatus(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	res, err := c.service.CheckStatus(ctx.UserContext(), userId, ctx.Params("reference"))
	if err != nil {
		return c.writeError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *paymentController) MyPayments(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Unauthorized"))
	}

	payments, err := c.service.ListPayments(ctx.UserContext(), userId)
	if err != nil {
		return c.writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Payments retrieved", payments))
}

func (c *paymentController) writeError(ctx *fiber.Ctx, err error) error {
	var dup *service.DuplicateSubscriptionError
	var gw *service.GatewayError

	switch {
	case errors.As(err, &dup):
		return ctx.Status(fiber.StatusBadRequest).JSON(
			serverutils.ErrorResponse(400, err.Error()).WithCode("duplicate_subscription").WithDetails(fiber.Map{"subscription": dup.Subscription}))
	case errors.Is(err, service.ErrInvalidPlan), errors.Is(err, service.ErrPlanNotFound):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()).WithCode("invalid_plan"))
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()).WithCode("invalid_payment_method"))
	case errors.Is(err, service.ErrUserNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()).WithCode("user_not_found"))
	case errors.As(err, &gw) && errors.Is(gw.Kind, service.ErrGatewayRejected):
		return ctx.Status(fiber.StatusBadGateway).JSON(
			serverutils.ErrorResponse(502, service.ErrGatewayRejected.Error()).WithCode("gateway_rejected").WithDetails(gw.Message))
	case errors.Is(err, service.ErrGatewayUnavailable):
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(
			serverutils.ErrorResponse(503, service.ErrGatewayUnavailable.Error()).WithCode("gateway_unavailable").WithDetails(err.Error()))
	case errors.Is(err, service.ErrInvalidSignature):
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, err.Error()).WithCode("invalid_signature"))
	case errors.Is(err, service.ErrMalformedWebhook):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()).WithCode("malformed_webhook"))
	case errors.Is(err, service.ErrPaymentNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()).WithCode("payment_not_found"))
	}

	c.logger.Error("PAYMENT", "Request failed", map[string]interface{}{
		"path":  ctx.Path(),
		"error": err.Error(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Internal server error"))
}
