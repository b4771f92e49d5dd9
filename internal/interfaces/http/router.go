package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/invorya/comercial-api/internal/application/billing"
	"github.com/invorya/comercial-api/internal/application/inventory"
	"github.com/invorya/comercial-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	MovementUC  *inventory.MovementUseCase
	LifecycleUC *billing.InvoiceLifecycleUseCase
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Inventory: movimientos y kardex
	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.MovementUC)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Post("/movements/:id/reverse", inventoryHandler.ReverseMovement)
	invGroup.Get("/products/:id/kardex", inventoryHandler.GetKardex)
	invGroup.Get("/products/:id/stock", inventoryHandler.GetStock)

	// Invoices: cálculo puro y ciclo de vida
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.LifecycleUC)
	invoices.Post("/compute", invoiceHandler.Compute)
	invoices.Post("/", invoiceHandler.Issue)
	invoices.Post("/:id/pay", invoiceHandler.Pay)
	invoices.Post("/:id/void", invoiceHandler.Void)
	invoices.Get("/:id", invoiceHandler.GetByID)
}
