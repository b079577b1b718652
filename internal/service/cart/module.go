package cart

import "go.uber.org/fx"

// Module provides the cart service to Fx.
var Module = fx.Provide(NewService)
