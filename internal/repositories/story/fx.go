package story

import (
	"go.uber.org/fx"
)

var Module = fx.Provide(
	fx.Annotate(
		NewHTTPRepository,
		fx.As(new(Repository)),
	),
)
