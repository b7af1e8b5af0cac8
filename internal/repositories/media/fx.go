package media

import (
	"go.uber.org/fx"
)

var Module = fx.Provide(
	fx.Annotate(
		NewHTTPUploader,
		fx.As(new(Uploader)),
	),
)
