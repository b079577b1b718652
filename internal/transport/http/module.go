package http

import (
	"go.uber.org/fx"

	carttransport "github.com/Additional-Code/checkout/internal/transport/http/cart"
	paymenttransport "github.com/Additional-Code/checkout/internal/transport/http/payment"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	carttransport.Module,
	paymenttransport.Module,
)
