package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huuphu310/rooms-management-sub003/internal/interfaces/http/handler"
)

// BillingHandlers bundles the HTTP handlers mounted under /billing
type BillingHandlers struct {
	Invoice     *handler.InvoiceHandler
	Payment     *handler.PaymentHandler
	Schedule    *handler.ScheduleHandler
	Folio       *handler.FolioHandler
	QRPayment   *handler.QRPaymentHandler
	DepositRule *handler.DepositRuleHandler
}

// BillingRoutes builds the route table for the billing domain.
// The bank transaction webhook is deliberately not here: it is signed
// instead of JWT-authenticated and is mounted outside the API group.
func BillingRoutes(h BillingHandlers) *DomainGroup {
	billing := NewDomainGroup("billing", "/billing")
	billing.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "billing service ready"})
	})

	// Invoice lifecycle
	billing.POST("/invoices", h.Invoice.Create)
	billing.GET("/invoices", h.Invoice.List)
	billing.POST("/invoices/deposit", h.Invoice.CreateDeposit)
	billing.GET("/invoices/:id", h.Invoice.GetByID)
	billing.POST("/invoices/:id/cancel", h.Invoice.Cancel)
	billing.POST("/invoices/:id/qr", h.QRPayment.IssueRequest)

	// Payments and refunds
	billing.POST("/payments", h.Payment.Record)
	billing.GET("/payments", h.Payment.List)
	billing.GET("/payments/:id", h.Payment.GetByID)
	billing.POST("/payments/:id/refund", h.Payment.Refund)

	// Per-booking schedule and folio
	billing.POST("/bookings/:id/schedule/auto", h.Schedule.GenerateAuto)
	billing.POST("/bookings/:id/schedule/custom", h.Schedule.GenerateCustom)
	billing.GET("/bookings/:id/schedule", h.Schedule.Get)
	billing.POST("/bookings/:id/folio", h.Folio.Open)
	billing.GET("/bookings/:id/folio", h.Folio.Get)
	billing.POST("/bookings/:id/folio/close", h.Folio.Close)
	billing.POST("/bookings/:id/folio/reopen", h.Folio.Reopen)

	// Schedule entry lifecycle
	billing.POST("/schedule-entries/:id/link-invoice", h.Schedule.LinkInvoice)
	billing.POST("/schedule-entries/:id/mark-paid", h.Schedule.MarkPaid)
	billing.POST("/schedule-entries/:id/cancel", h.Schedule.CancelEntry)

	// Deposit rules
	billing.POST("/deposit-rules", h.DepositRule.Create)
	billing.GET("/deposit-rules", h.DepositRule.List)
	billing.GET("/deposit-rules/:id", h.DepositRule.GetByID)
	billing.PUT("/deposit-rules/:id", h.DepositRule.Update)
	billing.DELETE("/deposit-rules/:id", h.DepositRule.Delete)
	billing.POST("/deposit-rules/:id/activate", h.DepositRule.Activate)
	billing.POST("/deposit-rules/:id/deactivate", h.DepositRule.Deactivate)

	return billing
}

// SystemRoutes builds the unauthenticated system route table
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.GetSystemInfo)
	system.GET("/ping", h.Ping)
	return system
}
