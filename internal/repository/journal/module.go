package journal

import "go.uber.org/fx"

// Module provides the journal repository to Fx.
var Module = fx.Provide(NewRepository)
