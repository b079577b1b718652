package payment

import "go.uber.org/fx"

// Module provides the payment orchestrator to Fx.
var Module = fx.Provide(NewService)
