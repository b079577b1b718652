package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/checkout/internal/cache"
	"github.com/Additional-Code/checkout/internal/config"
	"github.com/Additional-Code/checkout/internal/database"
	"github.com/Additional-Code/checkout/internal/gateway"
	"github.com/Additional-Code/checkout/internal/logger"
	"github.com/Additional-Code/checkout/internal/messaging"
	"github.com/Additional-Code/checkout/internal/observability"
	repositoryorder "github.com/Additional-Code/checkout/internal/repository/order"
	repositorypayment "github.com/Additional-Code/checkout/internal/repository/payment"
	httpserver "github.com/Additional-Code/checkout/internal/server/http"
	servicecart "github.com/Additional-Code/checkout/internal/service/cart"
	servicepayment "github.com/Additional-Code/checkout/internal/service/payment"
	transporthttp "github.com/Additional-Code/checkout/internal/transport/http"
	"github.com/Additional-Code/checkout/internal/worker"
	workerpayment "github.com/Additional-Code/checkout/internal/worker/payment"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositorypayment.Module,
	gateway.Module,
	servicecart.Module,
	servicepayment.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background settlement-event processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerpayment.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
